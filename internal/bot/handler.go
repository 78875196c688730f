package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"peregovorka/internal/config"
	"peregovorka/internal/models"
	"peregovorka/internal/schedule"
	"peregovorka/internal/store"
)

type Bot struct {
	bot        *tgbotapi.BotAPI
	config     *config.Config
	rooms      []models.Room
	store      *store.Store
	userStates map[int64]*models.UserState
	timeOpts   []schedule.TimeOfDay
	metrics    *Metrics
	logger     zerolog.Logger
}

const (
	StateMainMenu         = "main_menu"
	StateSelectDate       = "select_date"
	StateSelectStart      = "select_start"
	StateSelectEnd        = "select_end"
	StateSelectRoom       = "select_room"
	StateEnterDescription = "enter_description"
	StateEnterAttendees   = "enter_attendees"
	StateConfirmation     = "confirmation"
	StateScheduleDate     = "schedule_date"
)

func NewBot(token string, cfg *config.Config, rooms []models.Room, st *store.Store, metrics *Metrics, logger zerolog.Logger) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	botAPI.Debug = cfg.Telegram.Debug

	timeOpts, err := buildTimeGrid(cfg.Booking.DayStart, cfg.Booking.DayEnd, cfg.Booking.SlotMinutes)
	if err != nil {
		return nil, err
	}

	return &Bot{
		bot:        botAPI,
		config:     cfg,
		rooms:      rooms,
		store:      st,
		userStates: make(map[int64]*models.UserState),
		timeOpts:   timeOpts,
		metrics:    metrics,
		logger:     logger,
	}, nil
}

// buildTimeGrid строит сетку слотов рабочего дня. Пустое окно
// (начало не раньше конца) - ошибка конфигурации на старте,
// а не паника в обработчике первой заявки.
func buildTimeGrid(dayStart, dayEnd string, slotMinutes int) ([]schedule.TimeOfDay, error) {
	start, err := schedule.ParseTimeOfDay(dayStart)
	if err != nil {
		return nil, fmt.Errorf("bad day_start: %w", err)
	}
	end, err := schedule.ParseTimeOfDay(dayEnd)
	if err != nil {
		return nil, fmt.Errorf("bad day_end: %w", err)
	}
	if start >= end {
		return nil, fmt.Errorf("booking day window %s - %s is empty", dayStart, dayEnd)
	}
	return schedule.TimeOptions(start, end, time.Duration(slotMinutes)*time.Minute), nil
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.bot.GetUpdatesChan(u)

	b.logger.Info().Str("account", b.bot.Self.UserName).Msg("authorized")

	for {
		select {
		case <-ctx.Done():
			b.bot.StopReceivingUpdates()
			return
		case update := <-updates:
			started := time.Now()

			if update.CallbackQuery != nil {
				b.handleCallbackQuery(ctx, update)
			} else if update.Message != nil {
				// Проверка черного списка
				if b.isBlacklisted(update.Message.From.ID) {
					continue
				}
				b.handleMessage(ctx, update)
			}

			if b.metrics != nil {
				b.metrics.MessagesProcessed.Inc()
				b.metrics.UpdateProcessingTime.Observe(time.Since(started).Seconds())
			}
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, update tgbotapi.Update) {
	userID := update.Message.From.ID
	text := update.Message.Text

	if b.isManager(userID) {
		if b.handleManagerCommand(ctx, update) {
			return
		}
	}

	state := b.getUserState(userID)

	switch {
	case text == "/start" || strings.ToLower(text) == "сброс" || strings.ToLower(text) == "reset":
		b.clearUserState(userID)
		b.handleMainMenu(update)

	case text == "📋 Забронировать переговорку":
		b.startBookingFlow(update)

	case text == "📅 Расписание":
		b.requestScheduleDate(update)

	case text == "📊 Мои заявки":
		b.showUserBookings(ctx, update)

	case strings.HasPrefix(text, "/cancel_"):
		b.handleCancelCommand(ctx, update)

	case text == "❌ Отмена":
		b.clearUserState(userID)
		b.handleMainMenu(update)

	case state != nil && state.CurrentStep == StateSelectDate:
		b.handleDateInput(update, state)

	case state != nil && state.CurrentStep == StateScheduleDate:
		b.handleScheduleDateInput(ctx, update)

	case state != nil && state.CurrentStep == StateSelectStart:
		b.handleStartTimeInput(update, state)

	case state != nil && state.CurrentStep == StateSelectEnd:
		b.handleEndTimeInput(update, state)

	case state != nil && state.CurrentStep == StateSelectRoom:
		b.handleRoomInput(update, state)

	case state != nil && state.CurrentStep == StateEnterDescription:
		b.handleDescriptionInput(update, state)

	case state != nil && state.CurrentStep == StateEnterAttendees:
		b.handleAttendeesInput(update, state)

	case state != nil && state.CurrentStep == StateConfirmation && text == "✅ Подтвердить заявку":
		b.finalizeBooking(ctx, update, state)

	default:
		b.handleMainMenu(update)
	}
}

func (b *Bot) handleMainMenu(update tgbotapi.Update) {
	msg := tgbotapi.NewMessage(update.Message.Chat.ID,
		"Добро пожаловать в бронь переговорок! Выберите действие:")

	rows := [][]tgbotapi.KeyboardButton{
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📋 Забронировать переговорку"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📅 Расписание"),
			tgbotapi.NewKeyboardButton("📊 Мои заявки"),
		),
	}

	if b.isManager(update.Message.From.ID) {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("👨‍💼 Заявки на подтверждение"),
			tgbotapi.NewKeyboardButton("💾 Экспорт недели"),
		))
	}

	msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(rows...)

	b.setUserState(update.Message.From.ID, StateMainMenu, nil)
	b.bot.Send(msg)
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.bot.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send message failed")
		if b.metrics != nil {
			b.metrics.ErrorsTotal.Inc()
		}
	}
}

func (b *Bot) isManager(userID int64) bool {
	for _, id := range b.config.Managers {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *Bot) isBlacklisted(userID int64) bool {
	for _, id := range b.config.Blacklist {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *Bot) getUserState(userID int64) *models.UserState {
	return b.userStates[userID]
}

func (b *Bot) setUserState(userID int64, step string, data map[string]interface{}) {
	state := b.userStates[userID]
	if state == nil {
		state = &models.UserState{UserID: userID, TempData: make(map[string]interface{})}
		b.userStates[userID] = state
	}
	state.CurrentStep = step
	for k, v := range data {
		state.TempData[k] = v
	}
}

func (b *Bot) clearUserState(userID int64) {
	delete(b.userStates, userID)
}

// parseUserDate принимает дату в ДД.ММ.ГГГГ или ГГГГ-ММ-ДД
func parseUserDate(text string) (time.Time, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "📅 ")

	switch s {
	case "Сегодня":
		return today(), nil
	case "Завтра":
		return today().AddDate(0, 0, 1), nil
	}

	if d, err := time.Parse("02.01.2006", s); err == nil {
		return d, nil
	}
	return schedule.ParseDate(s)
}

func today() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
