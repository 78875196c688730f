package models

import (
	"time"

	"peregovorka/internal/schedule"
)

// Статусы заявки. Заявка создается в pending и занимает слот до явного
// отклонения менеджером; только rejected не учитывается при проверке
// конфликтов. Переходы между статусами не ограничены - менеджер может
// вернуть отклоненную заявку обратно.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Booking struct {
	ID          int64              `json:"id"`
	Date        time.Time          `json:"date"`
	StartTime   schedule.TimeOfDay `json:"start_time"`
	EndTime     schedule.TimeOfDay `json:"end_time"`
	OwnerName   string             `json:"owner_name"`
	OwnerChatID int64              `json:"owner_chat_id"`
	Location    string             `json:"location"`
	Description string             `json:"description"`
	Attendees   string             `json:"attendees"`
	Status      string             `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// Active сообщает, занимает ли заявка свой слот
func (b Booking) Active() bool {
	return b.Status != StatusRejected
}

// BookingRequest - данные формы до превращения в заявку
type BookingRequest struct {
	OwnerName   string             `validate:"required"`
	OwnerChatID int64              `validate:"required"`
	Date        time.Time          `validate:"required"`
	StartTime   schedule.TimeOfDay `validate:"gte=0"`
	EndTime     schedule.TimeOfDay `validate:"gte=0"`
	Location    string
	Description string `validate:"required"`
	Attendees   string
}
