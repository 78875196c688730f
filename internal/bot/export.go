package bot

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xuri/excelize/v2"

	"peregovorka/internal/models"
	"peregovorka/internal/schedule"
)

const exportSheet = "Бронирования"

// handleExportWeek экспорт расписания на текущую неделю
func (b *Bot) handleExportWeek(ctx context.Context, update tgbotapi.Update) {
	startDate, endDate := weekRange()

	filePath, err := b.exportToExcel(ctx, startDate, endDate)
	if err != nil {
		b.logger.Error().Err(err).Msg("excel export failed")
		b.sendMessage(update.Message.Chat.ID, "Ошибка при создании файла экспорта")
		return
	}

	b.sendExportFile(update.Message.Chat.ID, filePath, startDate, endDate)
}

// handleExportRange экспорт расписания за указанный период
func (b *Bot) handleExportRange(ctx context.Context, update tgbotapi.Update) {
	startDate, endDate, ok := b.parseRangeArgs(update, "/manager_export_range")
	if !ok {
		return
	}

	filePath, err := b.exportToExcel(ctx, startDate, endDate)
	if err != nil {
		b.logger.Error().Err(err).Msg("excel export failed")
		b.sendMessage(update.Message.Chat.ID, "Ошибка при создании файла экспорта")
		return
	}

	b.sendExportFile(update.Message.Chat.ID, filePath, startDate, endDate)
}

func (b *Bot) parseRangeArgs(update tgbotapi.Update, command string) (time.Time, time.Time, bool) {
	parts := strings.Fields(update.Message.Text)
	if len(parts) != 3 {
		b.sendMessage(update.Message.Chat.ID,
			fmt.Sprintf("Использование: %s ГГГГ-ММ-ДД ГГГГ-ММ-ДД", command))
		return time.Time{}, time.Time{}, false
	}

	startDate, err1 := time.Parse("2006-01-02", parts[1])
	endDate, err2 := time.Parse("2006-01-02", parts[2])
	if err1 != nil || err2 != nil {
		b.sendMessage(update.Message.Chat.ID, "Неверный формат даты. Используйте: ГГГГ-ММ-ДД")
		return time.Time{}, time.Time{}, false
	}
	if startDate.After(endDate) {
		b.sendMessage(update.Message.Chat.ID, "Начальная дата не может быть позже конечной")
		return time.Time{}, time.Time{}, false
	}

	return startDate, endDate, true
}

func (b *Bot) sendExportFile(chatID int64, filePath string, startDate, endDate time.Time) {
	file, err := os.Open(filePath)
	if err != nil {
		b.logger.Error().Err(err).Str("path", filePath).Msg("open export file failed")
		b.sendMessage(chatID, "Ошибка при открытии файла")
		return
	}
	defer file.Close()

	fileReader := tgbotapi.FileReader{
		Name:   filepath.Base(filePath),
		Reader: file,
	}

	doc := tgbotapi.NewDocument(chatID, fileReader)
	doc.Caption = fmt.Sprintf("📊 Экспорт расписания с %s по %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006"))

	if _, err := b.bot.Send(doc); err != nil {
		b.logger.Error().Err(err).Msg("send export file failed")
		b.sendMessage(chatID, "Ошибка при отправке файла")
		return
	}

	b.sendMessage(chatID, "✅ Файл экспорта успешно отправлен")
}

// exportToExcel строит сетку расписания: колонки - даты периода,
// строки - переговорки, ячейка перечисляет занятые слоты дня.
func (b *Bot) exportToExcel(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(b.config.Exports.Path, 0755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	bookings, err := b.store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %w", err)
	}

	// Группируем активные заявки по дате и переговорке
	byDate := make(map[string]map[string][]models.Booking)
	for _, booking := range bookings {
		if !booking.Active() {
			continue
		}
		key := schedule.DateKey(booking.Date)
		if byDate[key] == nil {
			byDate[key] = make(map[string][]models.Booking)
		}
		byDate[key][booking.Location] = append(byDate[key][booking.Location], booking)
	}

	rowLabels := b.exportRowLabels(bookings)

	f := excelize.NewFile()
	index, err := f.NewSheet(exportSheet)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	f.SetCellValue(exportSheet, "A1", fmt.Sprintf("Период: %s - %s",
		startDate.Format("02.01.2006"), endDate.Format("02.01.2006")))

	// Заголовки дат начиная с колонки B, строка 2
	col := 2
	dateHeaders := make(map[string]int)
	for currentDate := startDate; !currentDate.After(endDate); currentDate = currentDate.AddDate(0, 0, 1) {
		cellName, _ := excelize.CoordinatesToCellName(col, 2)
		f.SetCellValue(exportSheet, cellName, currentDate.Format("02.01"))
		dateHeaders[schedule.DateKey(currentDate)] = col

		style, err := f.NewStyle(&excelize.Style{
			Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
			Font:      &excelize.Font{Bold: true},
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		if err == nil {
			f.SetCellStyle(exportSheet, cellName, cellName, style)
		}
		col++
	}

	// Названия переговорок в первом столбце
	for i, label := range rowLabels {
		cellName, _ := excelize.CoordinatesToCellName(1, i+3)
		f.SetCellValue(exportSheet, cellName, label)

		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
			Font: &excelize.Font{Bold: true},
		})
		if err == nil {
			f.SetCellStyle(exportSheet, cellName, cellName, style)
		}
	}

	for dateKey, byLocation := range byDate {
		col, exists := dateHeaders[dateKey]
		if !exists {
			continue
		}

		for i, label := range rowLabels {
			cellName, _ := excelize.CoordinatesToCellName(col, i+3)
			dayBookings := byLocation[locationForLabel(label)]

			if len(dayBookings) == 0 {
				f.SetCellValue(exportSheet, cellName, "Свободно")
				if style, err := b.exportCellStyle(f, false, false); err == nil {
					f.SetCellStyle(exportSheet, cellName, cellName, style)
				}
				continue
			}

			var cellValue strings.Builder
			hasPending := false
			for _, booking := range dayBookings {
				if booking.Status == models.StatusPending {
					hasPending = true
				}
				cellValue.WriteString(fmt.Sprintf("%s %s - %s %s\n",
					statusEmoji(booking.Status),
					booking.StartTime.Short(), booking.EndTime.Short(),
					booking.OwnerName))
			}

			f.SetCellValue(exportSheet, cellName, strings.TrimRight(cellValue.String(), "\n"))
			if style, err := b.exportCellStyle(f, true, hasPending); err == nil {
				f.SetCellStyle(exportSheet, cellName, cellName, style)
			}
		}
	}

	f.SetColWidth(exportSheet, "A", "A", 25)
	for i := 'B'; i < 'Z'; i++ {
		f.SetColWidth(exportSheet, string(i), string(i), 22)
	}

	f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("schedule_%s_to_%s.xlsx",
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	filePath := filepath.Join(b.config.Exports.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	b.logger.Info().Str("path", filePath).Msg("excel export created")
	return filePath, nil
}

// exportRowLabels - строки сетки: переговорки из конфига, затем
// переговорки, встреченные только в таблице (правленной руками),
// и строка "Без переговорки" для заявок без места
func (b *Bot) exportRowLabels(bookings []models.Booking) []string {
	var labels []string
	for _, room := range b.rooms {
		labels = append(labels, room.Name)
	}

	known := make(map[string]bool, len(labels))
	for _, l := range labels {
		known[l] = true
	}

	hasNoRoom := false
	for _, booking := range bookings {
		if !booking.Active() {
			continue
		}
		if booking.Location == "" {
			hasNoRoom = true
			continue
		}
		if !known[booking.Location] {
			known[booking.Location] = true
			labels = append(labels, booking.Location)
		}
	}

	if hasNoRoom || len(labels) == 0 {
		labels = append(labels, noRoomLabel)
	}
	return labels
}

const noRoomLabel = "Без переговорки"

func locationForLabel(label string) string {
	if label == noRoomLabel {
		return ""
	}
	return label
}

// Цвета ячеек: зеленый - день свободен, желтый - есть хотя бы одна
// неподтвержденная заявка, красный - все заявки дня подтверждены
func (b *Bot) exportCellStyle(f *excelize.File, occupied, hasPending bool) (int, error) {
	fillColor := "#C6EFCE" // Зеленый
	if occupied {
		if hasPending {
			fillColor = "#FFEB9C" // Желтый
		} else {
			fillColor = "#FFC7CE" // Красный
		}
	}

	return f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{fillColor}, Pattern: 1},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "top",
			WrapText:   true,
		},
	})
}

// handleExportCSV - плоский CSV за период для выгрузки в отчеты
func (b *Bot) handleExportCSV(ctx context.Context, update tgbotapi.Update) {
	startDate, endDate, ok := b.parseRangeArgs(update, "/manager_export_csv")
	if !ok {
		return
	}

	bookings, err := b.store.List(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("csv export failed")
		b.sendMessage(update.Message.Chat.ID, "Ошибка при получении данных")
		return
	}

	if err := os.MkdirAll(b.config.Exports.Path, 0755); err != nil {
		b.sendMessage(update.Message.Chat.ID, "Ошибка при создании файла")
		return
	}

	fileName := fmt.Sprintf("bookings_%s_%s.csv",
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	filePath := filepath.Join(b.config.Exports.Path, fileName)

	file, err := os.Create(filePath)
	if err != nil {
		b.sendMessage(update.Message.Chat.ID, "Ошибка при создании файла")
		return
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	writer.Write([]string{"ID", "Дата", "Начало", "Конец", "Владелец", "Переговорка", "Статус", "Тема", "Создана"})

	startKey, endKey := schedule.DateKey(startDate), schedule.DateKey(endDate)
	for _, booking := range bookings {
		key := schedule.DateKey(booking.Date)
		if key < startKey || key > endKey {
			continue
		}
		writer.Write([]string{
			fmt.Sprintf("%d", booking.ID),
			key,
			booking.StartTime.String(),
			booking.EndTime.String(),
			booking.OwnerName,
			booking.Location,
			booking.Status,
			booking.Description,
			booking.CreatedAt.Format("02.01.2006 15:04"),
		})
	}
	writer.Flush()

	b.sendExportFile(update.Message.Chat.ID, filePath, startDate, endDate)
}
