package bot

import (
	"testing"

	"peregovorka/internal/models"
)

func TestExportRowLabels(t *testing.T) {
	b := &Bot{rooms: []models.Room{
		{ID: 1, Name: "Переговорка А"},
		{ID: 2, Name: "Переговорка Б"},
	}}

	bookings := []models.Booking{
		{Location: "Переговорка А", Status: models.StatusApproved},
		// Переговорка, которой нет в конфиге - своя строка сетки
		{Location: "Лаборатория", Status: models.StatusPending},
		{Location: "", Status: models.StatusApproved},
		// Отклоненная заявка строку не добавляет
		{Location: "Чердак", Status: models.StatusRejected},
	}

	labels := b.exportRowLabels(bookings)
	want := []string{"Переговорка А", "Переговорка Б", "Лаборатория", noRoomLabel}
	if len(labels) != len(want) {
		t.Fatalf("labels = %v, want %v", labels, want)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Errorf("labels[%d] = %q, want %q", i, labels[i], want[i])
		}
	}
}

func TestExportRowLabelsNoRooms(t *testing.T) {
	b := &Bot{}

	labels := b.exportRowLabels(nil)
	if len(labels) != 1 || labels[0] != noRoomLabel {
		t.Errorf("labels = %v, want [%s]", labels, noRoomLabel)
	}
}
