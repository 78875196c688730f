package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"peregovorka/internal/models"
	"peregovorka/internal/schedule"
	"peregovorka/internal/store"
)

// startBookingFlow начинает сценарий оформления заявки
func (b *Bot) startBookingFlow(update tgbotapi.Update) {
	msg := tgbotapi.NewMessage(update.Message.Chat.ID,
		"📋 Новая заявка\n\nВыберите дату или введите ее в формате ДД.ММ.ГГГГ:")
	msg.ReplyMarkup = dateKeyboard()

	b.setUserState(update.Message.From.ID, StateSelectDate, map[string]interface{}{})
	b.bot.Send(msg)
}

func dateKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📅 Сегодня"),
			tgbotapi.NewKeyboardButton("📅 Завтра"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("❌ Отмена"),
		),
	)
}

func (b *Bot) handleDateInput(update tgbotapi.Update, state *models.UserState) {
	date, err := parseUserDate(update.Message.Text)
	if err != nil {
		b.sendMessage(update.Message.Chat.ID, "❌ Не получилось разобрать дату. Формат: ДД.ММ.ГГГГ")
		return
	}

	if date.Before(today()) {
		b.sendMessage(update.Message.Chat.ID, "❌ Дата уже прошла, выберите другую")
		return
	}
	if max := b.config.Booking.MaxAdvanceDays; max > 0 && date.After(today().AddDate(0, 0, max)) {
		b.sendMessage(update.Message.Chat.ID,
			fmt.Sprintf("❌ Бронировать можно не дальше чем на %d дней вперед", max))
		return
	}

	state.TempData["date"] = date
	b.setUserState(update.Message.From.ID, StateSelectStart, nil)

	msg := tgbotapi.NewMessage(update.Message.Chat.ID, "Выберите время начала:")
	msg.ReplyMarkup = b.timeKeyboard(startOptions(b.timeOpts))
	b.bot.Send(msg)
}

// startOptions - варианты начала слота: последний узел сетки
// может быть только окончанием
func startOptions(opts []schedule.TimeOfDay) []schedule.TimeOfDay {
	if len(opts) < 2 {
		return nil
	}
	return opts[:len(opts)-1]
}

// timeKeyboard раскладывает сетку слотов по четыре кнопки в ряд
func (b *Bot) timeKeyboard(opts []schedule.TimeOfDay) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton
	var row []tgbotapi.KeyboardButton

	for _, t := range opts {
		row = append(row, tgbotapi.NewKeyboardButton(t.Short()))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("❌ Отмена")))

	return tgbotapi.NewReplyKeyboard(rows...)
}

func (b *Bot) handleStartTimeInput(update tgbotapi.Update, state *models.UserState) {
	start, err := schedule.ParseTimeOfDay(update.Message.Text)
	if err != nil {
		b.sendMessage(update.Message.Chat.ID, "❌ Не получилось разобрать время. Пример: 09:30")
		return
	}

	state.TempData["start"] = start
	b.setUserState(update.Message.From.ID, StateSelectEnd, nil)

	// Концом слота может быть только время после начала
	var after []schedule.TimeOfDay
	for _, t := range b.timeOpts {
		if t > start {
			after = append(after, t)
		}
	}

	msg := tgbotapi.NewMessage(update.Message.Chat.ID, "Выберите время окончания:")
	msg.ReplyMarkup = b.timeKeyboard(after)
	b.bot.Send(msg)
}

func (b *Bot) handleEndTimeInput(update tgbotapi.Update, state *models.UserState) {
	end, err := schedule.ParseTimeOfDay(update.Message.Text)
	if err != nil {
		b.sendMessage(update.Message.Chat.ID, "❌ Не получилось разобрать время. Пример: 10:30")
		return
	}

	start, _ := state.TempData["start"].(schedule.TimeOfDay)
	if end <= start {
		b.sendMessage(update.Message.Chat.ID, "❌ Время окончания должно быть позже начала")
		return
	}

	state.TempData["end"] = end

	if len(b.rooms) == 0 {
		b.setUserState(update.Message.From.ID, StateEnterDescription, nil)
		b.requestDescription(update)
		return
	}

	b.setUserState(update.Message.From.ID, StateSelectRoom, nil)

	var rows [][]tgbotapi.KeyboardButton
	for _, room := range b.rooms {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("🏢 "+room.Name),
		))
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("❌ Отмена")))

	msg := tgbotapi.NewMessage(update.Message.Chat.ID, "Выберите переговорку:")
	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(rows...)
	b.bot.Send(msg)
}

func (b *Bot) handleRoomInput(update tgbotapi.Update, state *models.UserState) {
	name := strings.TrimPrefix(update.Message.Text, "🏢 ")

	found := false
	for _, room := range b.rooms {
		if room.Name == name {
			found = true
			break
		}
	}
	if !found {
		b.sendMessage(update.Message.Chat.ID, "❌ Такой переговорки нет, выберите из списка")
		return
	}

	state.TempData["location"] = name
	b.setUserState(update.Message.From.ID, StateEnterDescription, nil)
	b.requestDescription(update)
}

func (b *Bot) requestDescription(update tgbotapi.Update) {
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, "Опишите тему встречи:")
	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("❌ Отмена")),
	)
	b.bot.Send(msg)
}

func (b *Bot) handleDescriptionInput(update tgbotapi.Update, state *models.UserState) {
	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		b.sendMessage(update.Message.Chat.ID, "❌ Описание обязательно")
		return
	}

	state.TempData["description"] = text
	b.setUserState(update.Message.From.ID, StateEnterAttendees, nil)

	msg := tgbotapi.NewMessage(update.Message.Chat.ID, "Перечислите участников (или пропустите):")
	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("➡️ Пропустить")),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("❌ Отмена")),
	)
	b.bot.Send(msg)
}

func (b *Bot) handleAttendeesInput(update tgbotapi.Update, state *models.UserState) {
	text := strings.TrimSpace(update.Message.Text)
	if text == "➡️ Пропустить" {
		text = ""
	}
	state.TempData["attendees"] = text

	b.setUserState(update.Message.From.ID, StateConfirmation, nil)

	date, _ := state.TempData["date"].(time.Time)
	start, _ := state.TempData["start"].(schedule.TimeOfDay)
	end, _ := state.TempData["end"].(schedule.TimeOfDay)
	location, _ := state.TempData["location"].(string)
	description, _ := state.TempData["description"].(string)

	summary := fmt.Sprintf(`📋 Проверьте заявку:

📅 Дата: %s
🕐 Время: %s - %s
🏢 Переговорка: %s
📝 Тема: %s`,
		date.Format("02.01.2006"),
		start.Short(), end.Short(),
		orDash(location),
		description,
	)
	if text != "" {
		summary += "\n👥 Участники: " + text
	}

	msg := tgbotapi.NewMessage(update.Message.Chat.ID, summary)
	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("✅ Подтвердить заявку")),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("❌ Отмена")),
	)
	b.bot.Send(msg)
}

func (b *Bot) finalizeBooking(ctx context.Context, update tgbotapi.Update, state *models.UserState) {
	date, _ := state.TempData["date"].(time.Time)
	start, _ := state.TempData["start"].(schedule.TimeOfDay)
	end, _ := state.TempData["end"].(schedule.TimeOfDay)
	location, _ := state.TempData["location"].(string)
	description, _ := state.TempData["description"].(string)
	attendees, _ := state.TempData["attendees"].(string)

	ownerName := strings.TrimSpace(update.Message.From.FirstName + " " + update.Message.From.LastName)
	if ownerName == "" {
		ownerName = update.Message.From.UserName
	}

	req := models.BookingRequest{
		OwnerName:   ownerName,
		OwnerChatID: update.Message.Chat.ID,
		Date:        date,
		StartTime:   start,
		EndTime:     end,
		Location:    location,
		Description: description,
		Attendees:   attendees,
	}

	booking, err := b.store.Add(ctx, req)
	if err != nil {
		b.reportBookingError(update.Message.Chat.ID, err)
		return
	}

	if b.metrics != nil {
		b.metrics.BookingsCreated.Inc()
	}

	b.clearUserState(update.Message.From.ID)
	b.sendMessage(update.Message.Chat.ID,
		fmt.Sprintf("✅ Заявка #%d создана и ожидает подтверждения менеджера", booking.ID))
	b.handleMainMenu(update)

	b.notifyManagersAboutBooking(booking)
}

func (b *Bot) reportBookingError(chatID int64, err error) {
	var conflict *store.ConflictError
	switch {
	case errors.As(err, &conflict):
		if b.metrics != nil {
			b.metrics.BookingConflicts.Inc()
		}
		b.sendMessage(chatID, fmt.Sprintf("❌ Конфликт! Слот уже занят: %s", conflict.Owner))
	case errors.Is(err, store.ErrInvalidRange):
		b.sendMessage(chatID, "❌ Время окончания должно быть позже начала")
	case errors.Is(err, store.ErrUnknownLocation):
		b.sendMessage(chatID, "❌ Такой переговорки нет")
	default:
		b.logger.Error().Err(err).Msg("booking create failed")
		if b.metrics != nil {
			b.metrics.ErrorsTotal.Inc()
		}
		b.sendMessage(chatID, "Ошибка при сохранении заявки, попробуйте еще раз")
	}
}

// handleCancelCommand - отмена собственной заявки командой /cancel_N
func (b *Bot) handleCancelCommand(ctx context.Context, update tgbotapi.Update) {
	var id int64
	if _, err := fmt.Sscanf(update.Message.Text, "/cancel_%d", &id); err != nil {
		return
	}

	booking, err := b.store.Get(ctx, id)
	if err != nil {
		b.sendMessage(update.Message.Chat.ID, "Заявка не найдена")
		return
	}

	// Чужую заявку пользователь снять не может
	if booking.OwnerChatID != update.Message.Chat.ID && !b.isManager(update.Message.From.ID) {
		b.sendMessage(update.Message.Chat.ID, "Это не ваша заявка")
		return
	}

	if err := b.store.Remove(ctx, id); err != nil {
		b.logger.Error().Err(err).Int64("booking_id", id).Msg("booking cancel failed")
		b.sendMessage(update.Message.Chat.ID, "Ошибка при отмене заявки")
		return
	}

	b.sendMessage(update.Message.Chat.ID, fmt.Sprintf("✅ Заявка #%d отменена", id))
}

func (b *Bot) showUserBookings(ctx context.Context, update tgbotapi.Update) {
	bookings, err := b.store.ListByOwner(ctx, update.Message.Chat.ID, today())
	if err != nil {
		b.logger.Error().Err(err).Msg("list user bookings failed")
		b.sendMessage(update.Message.Chat.ID, "Ошибка при получении заявок")
		return
	}

	if len(bookings) == 0 {
		b.sendMessage(update.Message.Chat.ID, "У вас нет предстоящих заявок")
		return
	}

	var message strings.Builder
	message.WriteString("📊 Ваши заявки:\n\n")
	for _, booking := range bookings {
		message.WriteString(fmt.Sprintf("%s Заявка #%d\n", statusEmoji(booking.Status), booking.ID))
		message.WriteString(fmt.Sprintf("   📅 %s, %s - %s\n",
			booking.Date.Format("02.01.2006"), booking.StartTime.Short(), booking.EndTime.Short()))
		if booking.Location != "" {
			message.WriteString(fmt.Sprintf("   🏢 %s\n", booking.Location))
		}
		message.WriteString(fmt.Sprintf("   📝 %s\n", booking.Description))
		message.WriteString(fmt.Sprintf("   🔗 /cancel_%d\n\n", booking.ID))
	}

	b.sendMessage(update.Message.Chat.ID, message.String())
}

func statusEmoji(status string) string {
	switch status {
	case models.StatusApproved:
		return "✅"
	case models.StatusRejected:
		return "❌"
	default:
		return "⏳"
	}
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
