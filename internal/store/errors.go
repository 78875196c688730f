package store

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange - начало слота не раньше конца
	ErrInvalidRange = errors.New("start time must be before end time")

	// ErrUnknownLocation - переговорка отсутствует в списке комнат
	ErrUnknownLocation = errors.New("unknown meeting room")

	// ErrNotFound - заявка с таким ID не найдена
	ErrNotFound = errors.New("booking not found")
)

// ConflictError сообщает, кем занят запрошенный слот
type ConflictError struct {
	Owner string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("time slot already booked by %s", e.Owner)
}
