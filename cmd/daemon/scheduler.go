package main

import (
	"sync"
	"time"

	"github.com/scmhub/calendar"
)

// Scheduler decides when the daily scan is due: once per NYSE trading day,
// at or after the configured wall-clock time.
type Scheduler struct {
	hour     int
	minute   int
	location *time.Location
	nyse     *calendar.Calendar
	now      func() time.Time

	mu      sync.Mutex
	lastRun string
}

// NewScheduler creates a new scheduler with the given schedule time and timezone
func NewScheduler(hour, minute int, timezone string) *Scheduler {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &Scheduler{
		hour:     hour,
		minute:   minute,
		location: loc,
		nyse:     calendar.XNYS(),
		now:      time.Now,
	}
}

// TodayDate returns today's date in YYYY-MM-DD format in the configured timezone
func (s *Scheduler) TodayDate() string {
	return s.now().In(s.location).Format("2006-01-02")
}

// IsMarketDay checks if the given date is a trading day (not weekend/holiday)
func (s *Scheduler) IsMarketDay(dateStr string) bool {
	// Parse as noon in the configured timezone to ensure correct date matching
	t, err := time.ParseInLocation("2006-01-02 15:04:05", dateStr+" 12:00:00", s.location)
	if err != nil {
		return false
	}
	return s.nyse.IsBusinessDay(t)
}

func (s *Scheduler) pastScheduledTime() bool {
	now := s.now().In(s.location)
	return now.Hour() > s.hour || (now.Hour() == s.hour && now.Minute() >= s.minute)
}

// SkipToday marks today as handled when the process starts after the
// scheduled time and catch-up runs are disabled.
func (s *Scheduler) SkipToday() {
	if s.pastScheduledTime() {
		s.MarkRun(s.TodayDate())
	}
}

// Due reports whether today's scan should run now.
func (s *Scheduler) Due() bool {
	today := s.TodayDate()

	s.mu.Lock()
	done := s.lastRun == today
	s.mu.Unlock()

	return !done && s.IsMarketDay(today) && s.pastScheduledTime()
}

// MarkRun records that the scan for date has been started.
func (s *Scheduler) MarkRun(date string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = date
}

// Location returns the scheduler's timezone location
func (s *Scheduler) Location() *time.Location {
	return s.location
}
