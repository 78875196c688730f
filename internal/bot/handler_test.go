package bot

import (
	"testing"

	"peregovorka/internal/schedule"
)

func TestBuildTimeGrid(t *testing.T) {
	opts, err := buildTimeGrid("08:00", "16:30", 30)
	if err != nil {
		t.Fatalf("buildTimeGrid: %v", err)
	}
	if len(opts) != 18 {
		t.Errorf("len(opts) = %d, want 18", len(opts))
	}

	if _, err := buildTimeGrid("16:30", "08:00", 30); err == nil {
		t.Error("expected error for inverted day window")
	}
	if _, err := buildTimeGrid("10:00", "10:00", 30); err == nil {
		t.Error("expected error for empty day window")
	}
	if _, err := buildTimeGrid("8:0", "16:30", 30); err == nil {
		t.Error("expected error for malformed day_start")
	}
	if _, err := buildTimeGrid("08:00", "abc", 30); err == nil {
		t.Error("expected error for malformed day_end")
	}
}

func TestStartOptions(t *testing.T) {
	opts, err := buildTimeGrid("08:00", "16:30", 30)
	if err != nil {
		t.Fatalf("buildTimeGrid: %v", err)
	}

	starts := startOptions(opts)
	if len(starts) != len(opts)-1 {
		t.Fatalf("len(starts) = %d, want %d", len(starts), len(opts)-1)
	}
	if starts[len(starts)-1].Short() != "16:00" {
		t.Errorf("last start = %s, want 16:00", starts[len(starts)-1].Short())
	}

	// Вырожденные сетки не дают вариантов начала и не роняют обработчик
	if got := startOptions(nil); got != nil {
		t.Errorf("startOptions(nil) = %v, want nil", got)
	}
	if got := startOptions([]schedule.TimeOfDay{opts[0]}); got != nil {
		t.Errorf("startOptions(single) = %v, want nil", got)
	}
}
