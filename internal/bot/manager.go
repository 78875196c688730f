package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"peregovorka/internal/models"
)

// handleManagerCommand обработка команд менеджера. Возвращает true,
// если сообщение было менеджерской командой и уже обработано.
func (b *Bot) handleManagerCommand(ctx context.Context, update tgbotapi.Update) bool {
	if !b.isManager(update.Message.From.ID) {
		return false
	}

	text := update.Message.Text

	switch {
	case text == "👨‍💼 Заявки на подтверждение" || text == "/pending":
		b.showPendingBookings(ctx, update)

	case text == "💾 Экспорт недели" || text == "/manager_export_week":
		b.handleExportWeek(ctx, update)

	case strings.HasPrefix(text, "/manager_export_range"):
		b.handleExportRange(ctx, update)

	case strings.HasPrefix(text, "/manager_export_csv"):
		b.handleExportCSV(ctx, update)

	case strings.HasPrefix(text, "/approve_"):
		b.handleDecisionCommand(ctx, update, "approve")

	case strings.HasPrefix(text, "/reject_"):
		b.handleDecisionCommand(ctx, update, "reject")

	case text == "/reload":
		// Сброс кеша после правки таблицы руками
		b.store.Invalidate(ctx)
		b.sendMessage(update.Message.Chat.ID, "✅ Кеш сброшен, данные будут перечитаны из таблицы")

	default:
		return false
	}

	return true
}

// showPendingBookings показывает менеджеру заявки, ожидающие решения
func (b *Bot) showPendingBookings(ctx context.Context, update tgbotapi.Update) {
	bookings, err := b.store.ListPending(ctx)
	if err != nil {
		b.logger.Error().Err(err).Msg("list pending bookings failed")
		b.sendMessage(update.Message.Chat.ID, "Ошибка при получении заявок")
		return
	}

	if len(bookings) == 0 {
		b.sendMessage(update.Message.Chat.ID, "Заявок на подтверждение нет")
		return
	}

	for _, booking := range bookings {
		msg := tgbotapi.NewMessage(update.Message.Chat.ID, bookingCard(booking))
		keyboard := decisionKeyboard(booking.ID)
		msg.ReplyMarkup = &keyboard
		b.bot.Send(msg)
	}
}

func bookingCard(b models.Booking) string {
	card := fmt.Sprintf(`%s Заявка #%d

👤 %s
📅 %s, %s - %s
📝 %s`,
		statusEmoji(b.Status), b.ID,
		b.OwnerName,
		b.Date.Format("02.01.2006"), b.StartTime.Short(), b.EndTime.Short(),
		b.Description,
	)
	if b.Location != "" {
		card += "\n🏢 " + b.Location
	}
	if b.Attendees != "" {
		card += "\n👥 " + b.Attendees
	}
	return card
}

func decisionKeyboard(id int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", fmt.Sprintf("approve_%d", id)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", fmt.Sprintf("reject_%d", id)),
		),
	)
}

func (b *Bot) handleCallbackQuery(ctx context.Context, update tgbotapi.Update) {
	callback := update.CallbackQuery
	data := callback.Data

	// Отвечаем на callback сразу, чтобы убрать "часики"
	callbackConfig := tgbotapi.NewCallback(callback.ID, "")
	_, _ = b.bot.Request(callbackConfig)

	if b.isBlacklisted(callback.From.ID) {
		return
	}

	var bookingID int64
	var action string
	for _, act := range []string{"approve_", "reject_"} {
		if _, err := fmt.Sscanf(data, act+"%d", &bookingID); err == nil {
			action = strings.TrimSuffix(act, "_")
			break
		}
	}
	if action == "" {
		return
	}

	// Решения по заявкам принимают только менеджеры
	if !b.isManager(callback.From.ID) {
		return
	}

	b.applyDecision(ctx, bookingID, action, callback.Message.Chat.ID)

	editMsg := tgbotapi.NewEditMessageText(callback.Message.Chat.ID, callback.Message.MessageID,
		fmt.Sprintf("✅ Заявка #%d обработана\nДействие: %s", bookingID, action))
	b.bot.Send(editMsg)
}

func (b *Bot) handleDecisionCommand(ctx context.Context, update tgbotapi.Update, action string) {
	var id int64
	if _, err := fmt.Sscanf(update.Message.Text, "/"+action+"_%d", &id); err != nil {
		b.sendMessage(update.Message.Chat.ID, fmt.Sprintf("Использование: /%s_<id>", action))
		return
	}
	b.applyDecision(ctx, id, action, update.Message.Chat.ID)
}

// applyDecision переводит заявку в approved/rejected и уведомляет владельца
func (b *Bot) applyDecision(ctx context.Context, bookingID int64, action string, managerChatID int64) {
	status := models.StatusApproved
	if action == "reject" {
		status = models.StatusRejected
	}

	booking, err := b.store.SetStatus(ctx, bookingID, status)
	if err != nil {
		b.logger.Error().Err(err).Int64("booking_id", bookingID).Str("action", action).Msg("decision failed")
		b.sendMessage(managerChatID, "Ошибка при обработке заявки")
		return
	}

	if b.metrics != nil {
		b.metrics.ManagerDecisions.WithLabelValues(action).Inc()
	}

	switch status {
	case models.StatusApproved:
		b.notifyOwner(booking,
			fmt.Sprintf("✅ Ваша заявка #%d подтверждена! Ждем вас %s в %s.",
				booking.ID, booking.Date.Format("02.01.2006"), booking.StartTime.Short()))
		b.sendMessage(managerChatID, "✅ Бронирование подтверждено")
	case models.StatusRejected:
		b.notifyOwner(booking,
			fmt.Sprintf("❌ К сожалению, ваша заявка #%d была отклонена менеджером.", booking.ID))
		b.sendMessage(managerChatID, "❌ Бронирование отклонено")
	}
}

// notifyOwner шлет владельцу заявки личное уведомление о решении
func (b *Bot) notifyOwner(booking *models.Booking, text string) {
	if booking.OwnerChatID == 0 {
		return
	}
	b.sendMessage(booking.OwnerChatID, text)
}

// notifyManagersAboutBooking уведомляет менеджеров о новой заявке
// с кнопками решения прямо в сообщении
func (b *Bot) notifyManagersAboutBooking(booking *models.Booking) {
	for _, managerID := range b.config.Managers {
		msg := tgbotapi.NewMessage(managerID, "🆕 Новая заявка\n\n"+bookingCard(*booking))
		keyboard := decisionKeyboard(booking.ID)
		msg.ReplyMarkup = &keyboard
		if _, err := b.bot.Send(msg); err != nil {
			b.logger.Warn().Err(err).Int64("manager_id", managerID).Msg("manager notify failed")
		}
	}
}

// weekRange - границы недели для экспорта, начиная с сегодня
func weekRange() (time.Time, time.Time) {
	start := today()
	return start, start.AddDate(0, 0, 6)
}
