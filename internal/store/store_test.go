package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"peregovorka/internal/models"
	"peregovorka/internal/schedule"
)

type fakeSource struct {
	bookings []models.Booking
	loadErr  error
	writeErr error
	loads    int
	writes   int
}

func (f *fakeSource) LoadBookings(ctx context.Context) ([]models.Booking, error) {
	f.loads++
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make([]models.Booking, len(f.bookings))
	copy(out, f.bookings)
	return out, nil
}

func (f *fakeSource) ReplaceBookings(ctx context.Context, bookings []models.Booking) error {
	f.writes++
	if f.writeErr != nil {
		return f.writeErr
	}
	f.bookings = make([]models.Booking, len(bookings))
	copy(f.bookings, bookings)
	return nil
}

type fakeCache struct {
	bookings      []models.Booking
	ok            bool
	sets          int
	invalidations int
}

func (c *fakeCache) Get(ctx context.Context) ([]models.Booking, bool) {
	if !c.ok {
		return nil, false
	}
	out := make([]models.Booking, len(c.bookings))
	copy(out, c.bookings)
	return out, true
}

func (c *fakeCache) Set(ctx context.Context, bookings []models.Booking) {
	c.sets++
	c.bookings = make([]models.Booking, len(bookings))
	copy(c.bookings, bookings)
	c.ok = true
}

func (c *fakeCache) Invalidate(ctx context.Context) {
	c.invalidations++
	c.bookings = nil
	c.ok = false
}

func at(t *testing.T, s string) schedule.TimeOfDay {
	t.Helper()
	tod, err := schedule.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("ParseTimeOfDay(%q): %v", s, err)
	}
	return tod
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := schedule.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", s, err)
	}
	return d
}

func testBooking(t *testing.T, id int64, day, start, end, owner, status string) models.Booking {
	t.Helper()
	return models.Booking{
		ID:          id,
		Date:        date(t, day),
		StartTime:   at(t, start),
		EndTime:     at(t, end),
		OwnerName:   owner,
		OwnerChatID: 1000 + id,
		Description: "встреча",
		Status:      status,
	}
}

func testStore(source Source) *Store {
	rooms := []models.Room{{ID: 1, Name: "Переговорка А"}, {ID: 2, Name: "Переговорка Б"}}
	return New(source, nil, rooms, zerolog.Nop())
}

func validRequest(t *testing.T) models.BookingRequest {
	return models.BookingRequest{
		OwnerName:   "Bob",
		OwnerChatID: 42,
		Date:        date(t, "2025-06-01"),
		StartTime:   at(t, "09:30"),
		EndTime:     at(t, "10:30"),
		Location:    "Переговорка А",
		Description: "Синк по проекту",
	}
}

func TestFindConflict(t *testing.T) {
	ctxDate := func(s string) time.Time { return date(t, s) }

	t.Run("empty collection", func(t *testing.T) {
		owner, found := FindConflict(nil, ctxDate("2025-06-01"), at(t, "09:00"), at(t, "10:00"))
		if found {
			t.Errorf("unexpected conflict with %s", owner)
		}
	})

	t.Run("approved booking conflicts", func(t *testing.T) {
		existing := []models.Booking{
			testBooking(t, 1, "2025-06-01", "09:00:00", "10:00:00", "Alice", models.StatusApproved),
		}
		owner, found := FindConflict(existing, ctxDate("2025-06-01"), at(t, "09:30:00"), at(t, "10:30:00"))
		if !found {
			t.Fatal("expected conflict")
		}
		if owner != "Alice" {
			t.Errorf("owner = %q, want Alice", owner)
		}
	})

	t.Run("back to back does not conflict", func(t *testing.T) {
		existing := []models.Booking{
			testBooking(t, 1, "2025-06-01", "09:00:00", "10:00:00", "Alice", models.StatusApproved),
		}
		if owner, found := FindConflict(existing, ctxDate("2025-06-01"), at(t, "10:00:00"), at(t, "11:00:00")); found {
			t.Errorf("unexpected conflict with %s", owner)
		}
	})

	t.Run("pending occupies the slot", func(t *testing.T) {
		existing := []models.Booking{
			testBooking(t, 1, "2025-06-01", "14:00:00", "15:00:00", "Carol", models.StatusPending),
		}
		if _, found := FindConflict(existing, ctxDate("2025-06-01"), at(t, "14:00:00"), at(t, "15:00:00")); !found {
			t.Error("expected conflict with pending booking")
		}
	})

	t.Run("rejected never conflicts", func(t *testing.T) {
		existing := []models.Booking{
			testBooking(t, 1, "2025-06-01", "14:00:00", "15:00:00", "Carol", models.StatusRejected),
		}
		if owner, found := FindConflict(existing, ctxDate("2025-06-01"), at(t, "14:00:00"), at(t, "15:00:00")); found {
			t.Errorf("unexpected conflict with %s", owner)
		}
	})

	t.Run("other date does not conflict", func(t *testing.T) {
		existing := []models.Booking{
			testBooking(t, 1, "2025-06-02", "09:00:00", "10:00:00", "Alice", models.StatusApproved),
		}
		if _, found := FindConflict(existing, ctxDate("2025-06-01"), at(t, "09:00:00"), at(t, "10:00:00")); found {
			t.Error("unexpected conflict across dates")
		}
	})

	t.Run("first match in collection order wins", func(t *testing.T) {
		existing := []models.Booking{
			testBooking(t, 1, "2025-06-01", "09:00:00", "11:00:00", "Alice", models.StatusApproved),
			testBooking(t, 2, "2025-06-01", "09:30:00", "10:30:00", "Carol", models.StatusPending),
		}
		owner, found := FindConflict(existing, ctxDate("2025-06-01"), at(t, "09:45:00"), at(t, "10:15:00"))
		if !found || owner != "Alice" {
			t.Errorf("owner = %q (found=%v), want Alice", owner, found)
		}
	})
}

func TestStoreAdd(t *testing.T) {
	ctx := context.Background()

	t.Run("append and persist", func(t *testing.T) {
		source := &fakeSource{}
		s := testStore(source)

		booking, err := s.Add(ctx, validRequest(t))
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if booking.ID != 1 {
			t.Errorf("ID = %d, want 1", booking.ID)
		}
		if booking.Status != models.StatusPending {
			t.Errorf("Status = %q, want pending", booking.Status)
		}
		if source.writes != 1 {
			t.Errorf("writes = %d, want 1", source.writes)
		}
		if len(source.bookings) != 1 {
			t.Fatalf("persisted %d bookings, want 1", len(source.bookings))
		}
	})

	t.Run("conflict names the owner", func(t *testing.T) {
		source := &fakeSource{bookings: []models.Booking{
			testBooking(t, 1, "2025-06-01", "09:00:00", "10:00:00", "Alice", models.StatusApproved),
		}}
		s := testStore(source)

		_, err := s.Add(ctx, validRequest(t))
		var conflict *ConflictError
		if !errors.As(err, &conflict) {
			t.Fatalf("err = %v, want ConflictError", err)
		}
		if conflict.Owner != "Alice" {
			t.Errorf("Owner = %q, want Alice", conflict.Owner)
		}
		if source.writes != 0 {
			t.Errorf("writes = %d, want 0 on conflict", source.writes)
		}
	})

	t.Run("back to back is allowed", func(t *testing.T) {
		source := &fakeSource{bookings: []models.Booking{
			testBooking(t, 1, "2025-06-01", "09:00:00", "10:00:00", "Alice", models.StatusApproved),
		}}
		s := testStore(source)

		req := validRequest(t)
		req.StartTime = at(t, "10:00")
		req.EndTime = at(t, "11:00")

		if _, err := s.Add(ctx, req); err != nil {
			t.Fatalf("Add: %v", err)
		}
	})

	t.Run("slot held by rejected booking is free", func(t *testing.T) {
		source := &fakeSource{bookings: []models.Booking{
			testBooking(t, 1, "2025-06-01", "09:00:00", "10:30:00", "Alice", models.StatusRejected),
		}}
		s := testStore(source)

		if _, err := s.Add(ctx, validRequest(t)); err != nil {
			t.Fatalf("Add: %v", err)
		}
	})

	t.Run("invalid range rejected before any write", func(t *testing.T) {
		source := &fakeSource{}
		s := testStore(source)

		req := validRequest(t)
		req.StartTime = at(t, "11:00")
		req.EndTime = at(t, "10:00")

		if _, err := s.Add(ctx, req); !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("err = %v, want ErrInvalidRange", err)
		}

		req.EndTime = req.StartTime
		if _, err := s.Add(ctx, req); !errors.Is(err, ErrInvalidRange) {
			t.Fatalf("err = %v, want ErrInvalidRange for zero-length slot", err)
		}
		if source.loads != 0 || source.writes != 0 {
			t.Error("validation must not touch the source")
		}
	})

	t.Run("missing description rejected", func(t *testing.T) {
		s := testStore(&fakeSource{})

		req := validRequest(t)
		req.Description = ""

		if _, err := s.Add(ctx, req); err == nil {
			t.Fatal("expected validation error")
		}
	})

	t.Run("unknown room rejected", func(t *testing.T) {
		s := testStore(&fakeSource{})

		req := validRequest(t)
		req.Location = "Чердак"

		if _, err := s.Add(ctx, req); !errors.Is(err, ErrUnknownLocation) {
			t.Fatal("expected ErrUnknownLocation")
		}
	})

	t.Run("ids grow monotonically", func(t *testing.T) {
		source := &fakeSource{bookings: []models.Booking{
			testBooking(t, 7, "2025-07-01", "09:00:00", "10:00:00", "Alice", models.StatusApproved),
		}}
		s := testStore(source)

		booking, err := s.Add(ctx, validRequest(t))
		if err != nil {
			t.Fatalf("Add: %v", err)
		}
		if booking.ID != 8 {
			t.Errorf("ID = %d, want 8", booking.ID)
		}
	})

	t.Run("write failure surfaces", func(t *testing.T) {
		source := &fakeSource{writeErr: errors.New("quota exceeded")}
		s := testStore(source)

		if _, err := s.Add(ctx, validRequest(t)); err == nil {
			t.Fatal("expected persistence error")
		}
	})
}

func TestStoreSetStatus(t *testing.T) {
	ctx := context.Background()

	source := &fakeSource{bookings: []models.Booking{
		testBooking(t, 1, "2025-06-01", "09:00:00", "10:00:00", "Alice", models.StatusPending),
	}}
	s := testStore(source)

	booking, err := s.SetStatus(ctx, 1, models.StatusApproved)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if booking.Status != models.StatusApproved {
		t.Errorf("Status = %q, want approved", booking.Status)
	}

	// Переходы не ограничены: отклоненную можно вернуть
	if _, err := s.SetStatus(ctx, 1, models.StatusRejected); err != nil {
		t.Fatalf("SetStatus rejected: %v", err)
	}
	if _, err := s.SetStatus(ctx, 1, models.StatusApproved); err != nil {
		t.Fatalf("SetStatus re-approve: %v", err)
	}

	if _, err := s.SetStatus(ctx, 1, "confirmed"); err == nil {
		t.Error("expected error for unknown status")
	}
	if _, err := s.SetStatus(ctx, 99, models.StatusApproved); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreRemove(t *testing.T) {
	ctx := context.Background()

	source := &fakeSource{bookings: []models.Booking{
		testBooking(t, 1, "2025-06-01", "09:00:00", "10:00:00", "Alice", models.StatusApproved),
		testBooking(t, 2, "2025-06-01", "11:00:00", "12:00:00", "Bob", models.StatusPending),
	}}
	s := testStore(source)

	if err := s.Remove(ctx, 1); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(source.bookings) != 1 || source.bookings[0].ID != 2 {
		t.Errorf("persisted = %+v, want only booking 2", source.bookings)
	}

	if err := s.Remove(ctx, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStoreListDayVisibility(t *testing.T) {
	ctx := context.Background()

	source := &fakeSource{bookings: []models.Booking{
		testBooking(t, 1, "2025-06-01", "11:00:00", "12:00:00", "Alice", models.StatusApproved),
		testBooking(t, 2, "2025-06-01", "09:00:00", "10:00:00", "Bob", models.StatusPending),
		testBooking(t, 3, "2025-06-01", "13:00:00", "14:00:00", "Carol", models.StatusRejected),
		testBooking(t, 4, "2025-06-02", "09:00:00", "10:00:00", "Dave", models.StatusApproved),
	}}
	s := testStore(source)

	day := date(t, "2025-06-01")

	visible, err := s.ListDay(ctx, day, false)
	if err != nil {
		t.Fatalf("ListDay: %v", err)
	}
	if len(visible) != 1 || visible[0].OwnerName != "Alice" {
		t.Errorf("visible = %+v, want only Alice's approved booking", visible)
	}

	all, err := s.ListDay(ctx, day, true)
	if err != nil {
		t.Fatalf("ListDay: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	// Отсортировано по началу слота
	if all[0].OwnerName != "Bob" || all[1].OwnerName != "Alice" || all[2].OwnerName != "Carol" {
		t.Errorf("unexpected order: %s, %s, %s", all[0].OwnerName, all[1].OwnerName, all[2].OwnerName)
	}
}

func TestStoreRoundTripStability(t *testing.T) {
	ctx := context.Background()

	source := &fakeSource{bookings: []models.Booking{
		testBooking(t, 1, "2025-06-01", "09:00:00", "10:00:00", "Alice", models.StatusApproved),
		testBooking(t, 2, "2025-06-02", "11:00:00", "12:00:00", "Bob", models.StatusPending),
	}}
	s := testStore(source)

	loaded, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}

	// Загрузить и сохранить без изменений - содержимое строк не меняется
	if err := s.ReplaceAll(ctx, loaded); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	after, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(after) != len(loaded) {
		t.Fatalf("len = %d, want %d", len(after), len(loaded))
	}
	for i := range loaded {
		if after[i] != loaded[i] {
			t.Errorf("row %d changed: %+v != %+v", i, after[i], loaded[i])
		}
	}
}

func TestStoreCacheInvalidation(t *testing.T) {
	ctx := context.Background()

	source := &fakeSource{}
	cache := &fakeCache{}
	rooms := []models.Room{{ID: 1, Name: "Переговорка А"}}
	s := New(source, cache, rooms, zerolog.Nop())

	// Чтение наполняет кеш, повторное чтение в таблицу не ходит
	if _, err := s.List(ctx); err != nil {
		t.Fatalf("List: %v", err)
	}
	if cache.sets != 1 {
		t.Errorf("sets = %d, want 1", cache.sets)
	}
	if _, err := s.List(ctx); err != nil {
		t.Fatalf("List: %v", err)
	}
	if source.loads != 1 {
		t.Errorf("loads = %d, want 1 (second read served from cache)", source.loads)
	}

	// Каждая успешная запись сбрасывает кеш
	booking, err := s.Add(ctx, validRequest(t))
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if cache.invalidations != 1 {
		t.Errorf("invalidations after Add = %d, want 1", cache.invalidations)
	}

	if _, err := s.SetStatus(ctx, booking.ID, models.StatusApproved); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if cache.invalidations != 2 {
		t.Errorf("invalidations after SetStatus = %d, want 2", cache.invalidations)
	}

	if err := s.Remove(ctx, booking.ID); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if cache.invalidations != 3 {
		t.Errorf("invalidations after Remove = %d, want 3", cache.invalidations)
	}

	// Конфликт таблицу не трогает - и кеш не сбрасывает
	if _, err := s.Add(ctx, validRequest(t)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add(ctx, validRequest(t)); err == nil {
		t.Fatal("expected conflict")
	}
	if cache.invalidations != 4 {
		t.Errorf("invalidations after conflict = %d, want 4 (only the successful Add)", cache.invalidations)
	}

	// Ошибка записи кеш не сбрасывает
	source.writeErr = errors.New("quota exceeded")
	req := validRequest(t)
	req.StartTime = at(t, "14:00")
	req.EndTime = at(t, "15:00")
	if _, err := s.Add(ctx, req); err == nil {
		t.Fatal("expected persistence error")
	}
	if cache.invalidations != 4 {
		t.Errorf("invalidations after failed write = %d, want 4", cache.invalidations)
	}
}

func TestStoreListByOwner(t *testing.T) {
	ctx := context.Background()

	source := &fakeSource{bookings: []models.Booking{
		testBooking(t, 1, "2099-06-02", "09:00:00", "10:00:00", "Alice", models.StatusApproved),
		testBooking(t, 2, "2099-06-01", "11:00:00", "12:00:00", "Alice", models.StatusPending),
		testBooking(t, 3, "2099-06-01", "09:00:00", "10:00:00", "Bob", models.StatusApproved),
	}}
	source.bookings[1].OwnerChatID = 1001
	s := testStore(source)

	mine, err := s.ListByOwner(ctx, 1001, date(t, "2099-01-01"))
	if err != nil {
		t.Fatalf("ListByOwner: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("len(mine) = %d, want 2", len(mine))
	}
	// Отсортировано по дате, потом по началу слота
	if mine[0].ID != 2 || mine[1].ID != 1 {
		t.Errorf("order = %d, %d, want 2, 1", mine[0].ID, mine[1].ID)
	}
}
