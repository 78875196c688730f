package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"peregovorka/internal/models"
	"peregovorka/internal/schedule"
)

// Source - контракт загрузчика/писателя таблицы бронирований.
// Писатель заменяет состояние целиком: добавление заявки это
// "прочитать все, добавить одну, записать все".
type Source interface {
	LoadBookings(ctx context.Context) ([]models.Booking, error)
	ReplaceBookings(ctx context.Context, bookings []models.Booking) error
}

// Cache - контракт кеша снимка таблицы. Реализация -
// repository.SnapshotCache поверх Redis; каждая успешная запись
// таблицы обязана завершиться Invalidate.
type Cache interface {
	Get(ctx context.Context) ([]models.Booking, bool)
	Set(ctx context.Context, bookings []models.Booking)
	Invalidate(ctx context.Context)
}

// Store оборачивает таблицу в транзакционную схему
// "прочитать снимок - изменить в памяти - записать снимок".
// Мьютекс - единственная точка сериализации: из двух одновременных
// заявок на один слот выигрывает первая записанная, вторая получает
// конфликт вместо двойного бронирования.
type Store struct {
	mu       sync.Mutex
	source   Source
	cache    Cache
	rooms    map[string]models.Room
	validate *validator.Validate
	logger   zerolog.Logger
}

func New(source Source, cache Cache, rooms []models.Room, logger zerolog.Logger) *Store {
	roomIndex := make(map[string]models.Room, len(rooms))
	for _, r := range rooms {
		roomIndex[r.Name] = r
	}
	return &Store{
		source:   source,
		cache:    cache,
		rooms:    roomIndex,
		validate: validator.New(),
		logger:   logger,
	}
}

// snapshot читает текущую коллекцию, сначала пробуя короткоживущий кеш.
// Кеш - оптимизация чтения, не механизм корректности: после каждой
// успешной записи он сбрасывается, чтобы пользователь сразу видел
// собственное изменение.
func (s *Store) snapshot(ctx context.Context) ([]models.Booking, error) {
	if s.cache != nil {
		if bookings, ok := s.cache.Get(ctx); ok {
			return bookings, nil
		}
	}

	bookings, err := s.source.LoadBookings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bookings: %w", err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, bookings)
	}
	return bookings, nil
}

func (s *Store) persist(ctx context.Context, bookings []models.Booking) error {
	if err := s.source.ReplaceBookings(ctx, bookings); err != nil {
		return fmt.Errorf("write bookings: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
	return nil
}

// List возвращает снимок всех заявок
func (s *Store) List(ctx context.Context) ([]models.Booking, error) {
	bookings, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Booking, len(bookings))
	copy(out, bookings)
	return out, nil
}

// ListDay возвращает заявки на дату, отсортированные по началу слота.
// Без includeHidden отдаются только approved - обычный пользователь
// не видит чужие ожидающие и отклоненные заявки.
func (s *Store) ListDay(ctx context.Context, date time.Time, includeHidden bool) ([]models.Booking, error) {
	bookings, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	key := schedule.DateKey(date)
	var out []models.Booking
	for _, b := range bookings {
		if schedule.DateKey(b.Date) != key {
			continue
		}
		if !includeHidden && b.Status != models.StatusApproved {
			continue
		}
		out = append(out, b)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out, nil
}

// ListByOwner возвращает заявки пользователя за датой от from
func (s *Store) ListByOwner(ctx context.Context, chatID int64, from time.Time) ([]models.Booking, error) {
	bookings, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	fromKey := schedule.DateKey(from)
	var out []models.Booking
	for _, b := range bookings {
		if b.OwnerChatID != chatID {
			continue
		}
		if schedule.DateKey(b.Date) < fromKey {
			continue
		}
		out = append(out, b)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

// ListPending возвращает заявки, ожидающие решения менеджера
func (s *Store) ListPending(ctx context.Context) ([]models.Booking, error) {
	bookings, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.Booking
	for _, b := range bookings {
		if b.Status == models.StatusPending {
			out = append(out, b)
		}
	}
	return out, nil
}

// Get возвращает заявку по ID
func (s *Store) Get(ctx context.Context, id int64) (*models.Booking, error) {
	bookings, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	for i := range bookings {
		if bookings[i].ID == id {
			b := bookings[i]
			return &b, nil
		}
	}
	return nil, ErrNotFound
}

// Add проверяет заявку и дописывает ее в таблицу. Последовательность
// атомарна под мьютексом: загрузка снимка, проверка конфликта,
// запись. Новая заявка всегда создается в статусе pending.
func (s *Store) Add(ctx context.Context, req models.BookingRequest) (*models.Booking, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid booking request: %w", err)
	}
	if req.StartTime >= req.EndTime {
		return nil, ErrInvalidRange
	}
	if req.Location != "" && len(s.rooms) > 0 {
		if _, ok := s.rooms[req.Location]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownLocation, req.Location)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bookings, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if owner, found := FindConflict(bookings, req.Date, req.StartTime, req.EndTime); found {
		return nil, &ConflictError{Owner: owner}
	}

	now := time.Now()
	booking := models.Booking{
		ID:          nextID(bookings),
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		OwnerName:   req.OwnerName,
		OwnerChatID: req.OwnerChatID,
		Location:    req.Location,
		Description: req.Description,
		Attendees:   req.Attendees,
		Status:      models.StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	bookings = append(bookings, booking)
	if err := s.persist(ctx, bookings); err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("booking_id", booking.ID).
		Str("owner", booking.OwnerName).
		Str("date", schedule.DateKey(booking.Date)).
		Str("slot", booking.StartTime.String()+"-"+booking.EndTime.String()).
		Msg("booking created")

	return &booking, nil
}

// SetStatus переводит заявку в новый статус. Переходы не ограничены:
// менеджер может заново одобрить отклоненную заявку.
func (s *Store) SetStatus(ctx context.Context, id int64, status string) (*models.Booking, error) {
	switch status {
	case models.StatusPending, models.StatusApproved, models.StatusRejected:
	default:
		return nil, fmt.Errorf("unknown status %q", status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bookings, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range bookings {
		if bookings[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrNotFound
	}

	bookings[idx].Status = status
	bookings[idx].UpdatedAt = time.Now()
	if err := s.persist(ctx, bookings); err != nil {
		return nil, err
	}

	b := bookings[idx]
	s.logger.Info().Int64("booking_id", id).Str("status", status).Msg("booking status changed")
	return &b, nil
}

// Remove удаляет заявку: строка выфильтровывается из снимка
// и таблица перезаписывается без нее.
func (s *Store) Remove(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	bookings, err := s.snapshot(ctx)
	if err != nil {
		return err
	}

	kept := bookings[:0:0]
	found := false
	for _, b := range bookings {
		if b.ID == id {
			found = true
			continue
		}
		kept = append(kept, b)
	}
	if !found {
		return ErrNotFound
	}

	if err := s.persist(ctx, kept); err != nil {
		return err
	}

	s.logger.Info().Int64("booking_id", id).Msg("booking removed")
	return nil
}

// ReplaceAll - путь массового редактирования: заменяет коллекцию
// целиком без повторной проверки попарных пересечений. Инвариант
// непересекающихся слотов здесь может быть нарушен редактором.
func (s *Store) ReplaceAll(ctx context.Context, bookings []models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(ctx, bookings)
}

// Invalidate сбрасывает кеш снимка, следующее чтение пойдет в таблицу
func (s *Store) Invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

func nextID(bookings []models.Booking) int64 {
	var max int64
	for _, b := range bookings {
		if b.ID > max {
			max = b.ID
		}
	}
	return max + 1
}
