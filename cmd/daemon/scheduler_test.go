package main

import (
	"testing"
	"time"
)

func newTestScheduler(t *testing.T, at string) *Scheduler {
	t.Helper()
	s := NewScheduler(16, 15, "America/New_York")
	now, err := time.ParseInLocation("2006-01-02 15:04", at, s.Location())
	if err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return now }
	return s
}

func TestScheduler_Due(t *testing.T) {
	tests := []struct {
		name string
		at   string
		want bool
	}{
		{"before schedule", "2025-03-10 16:14", false},
		{"at schedule", "2025-03-10 16:15", true},
		{"after schedule", "2025-03-10 20:00", true},
		{"saturday", "2025-03-08 17:00", false},
		{"independence day", "2025-07-04 17:00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := newTestScheduler(t, tt.at).Due(); got != tt.want {
				t.Errorf("Due() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestScheduler_RunsOncePerDay(t *testing.T) {
	s := newTestScheduler(t, "2025-03-10 16:30")
	if !s.Due() {
		t.Fatal("expected scan due")
	}
	s.MarkRun(s.TodayDate())
	if s.Due() {
		t.Error("expected no second run on the same day")
	}
}

func TestScheduler_SkipToday(t *testing.T) {
	late := newTestScheduler(t, "2025-03-10 18:00")
	late.SkipToday()
	if late.Due() {
		t.Error("expected today's missed run to be skipped")
	}

	early := newTestScheduler(t, "2025-03-10 09:00")
	early.SkipToday()
	early.now = func() time.Time { return time.Date(2025, 3, 10, 16, 20, 0, 0, early.Location()) }
	if !early.Due() {
		t.Error("starting before the schedule must not skip today")
	}
}
