package google

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"peregovorka/internal/models"
	"peregovorka/internal/schedule"
)

const (
	createdAtLayout = "2006-01-02 15:04:05"

	// Колонки листа бронирований:
	// A ID, B Date, C Start, D End, E Owner, F Owner Chat ID,
	// G Location, H Description, I Attendees, J Status,
	// K Created At, L Updated At
	lastColumn = "L"
)

var headerRow = []interface{}{
	"ID", "Date", "Start Time", "End Time", "Owner", "Owner Chat ID",
	"Location", "Description", "Attendees", "Status", "Created At", "Updated At",
}

type SheetsService struct {
	service         *sheets.Service
	bookingsSheetID string
	sheetName       string
	logger          zerolog.Logger
}

func NewSheetsService(credentialsFile, bookingsSheetID, sheetName string, logger zerolog.Logger) (*SheetsService, error) {
	ctx := context.Background()

	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	// Создаем JWT конфигурацию
	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	client := config.Client(ctx)

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	if sheetName == "" {
		sheetName = "Bookings"
	}

	return &SheetsService{
		service:         srv,
		bookingsSheetID: bookingsSheetID,
		sheetName:       sheetName,
		logger:          logger,
	}, nil
}

// TestConnection проверяет подключение к таблице
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.bookingsSheetID, s.sheetName+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail возвращает email сервисного аккаунта
func (s *SheetsService) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}

	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}

	return creds.ClientEmail, nil
}

// LoadBookings читает всю таблицу бронирований. Даты в таблице
// исторически хранятся со смешанными разделителями, строки со
// временем, которое не нормализуется, пропускаются целиком -
// такая строка не должна валить ни одно представление.
func (s *SheetsService) LoadBookings(ctx context.Context) ([]models.Booking, error) {
	rangeData := fmt.Sprintf("%s!A2:%s", s.sheetName, lastColumn)
	resp, err := s.service.Spreadsheets.Values.Get(s.bookingsSheetID, rangeData).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read bookings sheet: %w", err)
	}

	var bookings []models.Booking
	for i, row := range resp.Values {
		booking, err := parseRow(row)
		if err != nil {
			s.logger.Warn().Err(err).Int("row", i+2).Msg("skipping malformed booking row")
			continue
		}
		bookings = append(bookings, booking)
	}

	return bookings, nil
}

// ReplaceBookings перезаписывает лист целиком: сначала очистка
// старых строк, потом запись заголовка и свежего снимка. Так
// удаленные заявки не остаются хвостом под новыми данными.
func (s *SheetsService) ReplaceBookings(ctx context.Context, bookings []models.Booking) error {
	clearRange := fmt.Sprintf("%s!A2:%s", s.sheetName, lastColumn)
	_, err := s.service.Spreadsheets.Values.Clear(s.bookingsSheetID, clearRange, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear bookings sheet: %w", err)
	}

	values := [][]interface{}{headerRow}
	for _, b := range bookings {
		values = append(values, bookingRow(b))
	}

	rangeData := fmt.Sprintf("%s!A1:%s%d", s.sheetName, lastColumn, len(values))
	valueRange := &sheets.ValueRange{Values: values}

	_, err = s.service.Spreadsheets.Values.Update(s.bookingsSheetID, rangeData, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("write bookings sheet: %w", err)
	}

	return nil
}

func bookingRow(b models.Booking) []interface{} {
	return []interface{}{
		b.ID,
		schedule.DateKey(b.Date),
		b.StartTime.String(),
		b.EndTime.String(),
		b.OwnerName,
		b.OwnerChatID,
		b.Location,
		b.Description,
		b.Attendees,
		b.Status,
		b.CreatedAt.Format(createdAtLayout),
		b.UpdatedAt.Format(createdAtLayout),
	}
}

func parseRow(row []interface{}) (models.Booking, error) {
	var b models.Booking

	if len(row) < 5 {
		return b, fmt.Errorf("short row: %d cells", len(row))
	}

	id, err := strconv.ParseInt(cell(row, 0), 10, 64)
	if err != nil {
		return b, fmt.Errorf("bad id %q: %w", cell(row, 0), err)
	}

	date, err := schedule.ParseDate(cell(row, 1))
	if err != nil {
		return b, err
	}

	start, err := schedule.ParseTimeOfDay(cell(row, 2))
	if err != nil {
		return b, err
	}
	end, err := schedule.ParseTimeOfDay(cell(row, 3))
	if err != nil {
		return b, err
	}

	chatID, _ := strconv.ParseInt(cell(row, 5), 10, 64)

	b = models.Booking{
		ID:          id,
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		OwnerName:   strings.TrimSpace(cell(row, 4)),
		OwnerChatID: chatID,
		Location:    strings.TrimSpace(cell(row, 6)),
		Description: cell(row, 7),
		Attendees:   cell(row, 8),
		Status:      normalizeStatus(cell(row, 9)),
	}

	// Времена создания/обновления информационные, ошибки разбора не фатальны
	if t, err := time.Parse(createdAtLayout, cell(row, 10)); err == nil {
		b.CreatedAt = t
	}
	if t, err := time.Parse(createdAtLayout, cell(row, 11)); err == nil {
		b.UpdatedAt = t
	}

	return b, nil
}

// normalizeStatus - миграция схемы на загрузке: строки из старых
// версий таблицы без колонки статуса считаются подтвержденными.
func normalizeStatus(raw string) string {
	status := strings.ToLower(strings.TrimSpace(raw))
	if status == "" {
		return models.StatusApproved
	}
	return status
}

func cell(row []interface{}, idx int) string {
	if idx >= len(row) {
		return ""
	}
	if s, ok := row[idx].(string); ok {
		return s
	}
	return fmt.Sprintf("%v", row[idx])
}
