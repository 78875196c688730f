package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// requestScheduleDate спрашивает дату для просмотра расписания
func (b *Bot) requestScheduleDate(update tgbotapi.Update) {
	msg := tgbotapi.NewMessage(update.Message.Chat.ID,
		"📅 Расписание какой даты показать? Выберите или введите ДД.ММ.ГГГГ:")
	msg.ReplyMarkup = dateKeyboard()

	b.setUserState(update.Message.From.ID, StateScheduleDate, nil)
	b.bot.Send(msg)
}

func (b *Bot) handleScheduleDateInput(ctx context.Context, update tgbotapi.Update) {
	date, err := parseUserDate(update.Message.Text)
	if err != nil {
		b.sendMessage(update.Message.Chat.ID, "❌ Не получилось разобрать дату. Формат: ДД.ММ.ГГГГ")
		return
	}

	// Менеджер видит и неподтвержденные заявки, пользователь - только approved
	manager := b.isManager(update.Message.From.ID)
	bookings, err := b.store.ListDay(ctx, date, manager)
	if err != nil {
		b.logger.Error().Err(err).Msg("list day failed")
		b.sendMessage(update.Message.Chat.ID, "Ошибка при получении расписания")
		return
	}

	b.clearUserState(update.Message.From.ID)

	var message strings.Builder
	message.WriteString(fmt.Sprintf("📅 Расписание на %s:\n\n", date.Format("02.01.2006")))

	if len(bookings) == 0 {
		message.WriteString("Все слоты свободны")
	}

	for _, booking := range bookings {
		line := fmt.Sprintf("🕐 %s - %s", booking.StartTime.Short(), booking.EndTime.Short())
		if booking.Location != "" {
			line += " · " + booking.Location
		}
		line += fmt.Sprintf(" · %s (%s)", booking.OwnerName, booking.Description)
		if manager {
			line = statusEmoji(booking.Status) + " " + line + fmt.Sprintf(" · #%d", booking.ID)
		}
		message.WriteString(line + "\n")
	}

	b.sendMessage(update.Message.Chat.ID, message.String())
	b.handleMainMenu(update)
}
