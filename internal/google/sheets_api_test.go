package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"peregovorka/internal/models"
	"peregovorka/internal/schedule"
)

func TestSheetsService_WithMockAPI(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	ctx := context.Background()
	srv, _ := sheets.NewService(ctx, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	s := &SheetsService{
		service:         srv,
		bookingsSheetID: "bookings_tid",
		sheetName:       "Bookings",
		logger:          zerolog.Nop(),
	}

	t.Run("TestConnection", func(t *testing.T) {
		mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A1", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
		})
		if err := s.TestConnection(ctx); err != nil {
			t.Errorf("TestConnection failed: %v", err)
		}
	})

	t.Run("LoadBookings", func(t *testing.T) {
		mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A2:L", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(sheets.ValueRange{
				Values: [][]interface{}{
					// Обычная строка
					{"1", "2025-06-01", "09:00:00", "10:00:00", "Alice", "1001", "Переговорка А", "Синк", "", "approved", "2025-05-20 12:00:00", "2025-05-20 12:00:00"},
					// Смешанный разделитель даты и время без секунд
					{"2", "2025/06/01", "10:30", "11:30", "Bob", "1002", "Переговорка Б", "Демо", "Alice, Carol", "pending", "2025-05-21 09:00:00", "2025-05-21 09:00:00"},
					// Легаси-строка без статуса - мигрирует в approved
					{"3", "2025-06-02", "14:00:00", "15:00:00", "Carol", "", "", "Планирование", ""},
					// Ненормализуемое время - строка пропускается
					{"4", "2025-06-02", "8:0", "09:00:00", "Dave", "", "", "Сломанная строка", ""},
					// Битая дата - строка пропускается
					{"5", "01.06.2025", "09:00:00", "10:00:00", "Eve", "", "", "Сломанная дата", ""},
				},
			})
		})

		bookings, err := s.LoadBookings(ctx)
		if err != nil {
			t.Fatalf("LoadBookings failed: %v", err)
		}
		if len(bookings) != 3 {
			t.Fatalf("len(bookings) = %d, want 3 (malformed rows skipped)", len(bookings))
		}

		if schedule.DateKey(bookings[1].Date) != "2025-06-01" {
			t.Errorf("mixed separator date = %s, want 2025-06-01", schedule.DateKey(bookings[1].Date))
		}
		if bookings[1].StartTime.String() != "10:30:00" {
			t.Errorf("normalized start = %s, want 10:30:00", bookings[1].StartTime)
		}
		if bookings[2].Status != models.StatusApproved {
			t.Errorf("legacy status = %q, want approved", bookings[2].Status)
		}
		if bookings[0].OwnerChatID != 1001 {
			t.Errorf("chat id = %d, want 1001", bookings[0].OwnerChatID)
		}
	})

	t.Run("ReplaceBookings", func(t *testing.T) {
		var cleared, updated bool
		var gotRows int

		mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A2:L:clear", func(w http.ResponseWriter, r *http.Request) {
			cleared = true
			json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
		})
		mux.HandleFunc("/v4/spreadsheets/bookings_tid/values/Bookings!A1:L2", func(w http.ResponseWriter, r *http.Request) {
			updated = true
			var vr sheets.ValueRange
			json.NewDecoder(r.Body).Decode(&vr)
			gotRows = len(vr.Values)
			json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
		})

		start, _ := schedule.ParseTimeOfDay("09:00")
		end, _ := schedule.ParseTimeOfDay("10:00")
		bookings := []models.Booking{{
			ID:        1,
			Date:      time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
			StartTime: start,
			EndTime:   end,
			OwnerName: "Alice",
			Status:    models.StatusApproved,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}}

		if err := s.ReplaceBookings(ctx, bookings); err != nil {
			t.Fatalf("ReplaceBookings failed: %v", err)
		}
		if !cleared {
			t.Error("expected old rows to be cleared")
		}
		if !updated {
			t.Error("expected sheet update call")
		}
		if gotRows != 2 {
			t.Errorf("wrote %d rows, want 2 (header + booking)", gotRows)
		}
	})

	t.Run("EmptySheet", func(t *testing.T) {
		mux2 := http.NewServeMux()
		server2 := httptest.NewServer(mux2)
		defer server2.Close()

		srv2, _ := sheets.NewService(ctx, option.WithEndpoint(server2.URL), option.WithoutAuthentication())
		s2 := &SheetsService{service: srv2, bookingsSheetID: "empty_tid", sheetName: "Bookings", logger: zerolog.Nop()}

		mux2.HandleFunc("/v4/spreadsheets/empty_tid/values/Bookings!A2:L", func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(sheets.ValueRange{})
		})

		bookings, err := s2.LoadBookings(ctx)
		if err != nil {
			t.Fatalf("LoadBookings failed: %v", err)
		}
		if len(bookings) != 0 {
			t.Errorf("len = %d, want 0", len(bookings))
		}
	})
}
