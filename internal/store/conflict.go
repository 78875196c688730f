package store

import (
	"time"

	"peregovorka/internal/models"
	"peregovorka/internal/schedule"
)

// FindConflict ищет пересечение предлагаемого полуинтервала [start, end)
// с существующими заявками на ту же дату. Отклоненные заявки слот не
// занимают, pending и approved - занимают обе: неподтвержденная заявка
// резервирует слот до решения менеджера.
//
// Возвращается владелец первой пересекающейся заявки в порядке обхода
// коллекции. Корректность start < end обеспечивает вызывающая сторона.
func FindConflict(bookings []models.Booking, date time.Time, start, end schedule.TimeOfDay) (string, bool) {
	if len(bookings) == 0 {
		return "", false
	}

	key := schedule.DateKey(date)
	for _, b := range bookings {
		if !b.Active() {
			continue
		}
		if schedule.DateKey(b.Date) != key {
			continue
		}
		if schedule.Overlaps(b.StartTime, b.EndTime, start, end) {
			return b.OwnerName, true
		}
	}

	return "", false
}
