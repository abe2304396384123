package scan

import (
	"fmt"
	"time"

	"github.com/LoppVicious/QuantDesk-Web/internal/analysis"
)

// Status is a scan's lifecycle state: pending, running, then exactly one of
// completed or failed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Final reports whether no further transitions are allowed.
func (s Status) Final() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Request selects the tickers and parameters for one scan.
type Request struct {
	Sector     string `json:"sector"`
	NumTickers int    `json:"num_tickers"`
	MaxDTE     int    `json:"max_dte"`
	Lookback   int    `json:"lookback"`
}

func (r Request) String() string {
	return fmt.Sprintf("sector=%q tickers=%d max_dte=%d lookback=%d", r.Sector, r.NumTickers, r.MaxDTE, r.Lookback)
}

// Summary counts per-ticker outcomes of a finished scan.
type Summary struct {
	Total       int           `json:"total"`
	OK          int           `json:"ok"`
	Unavailable int           `json:"unavailable"`
	Fault       int           `json:"fault"`
	Duration    time.Duration `json:"duration_ns"`
}

// Task is the externally visible state of a scan.
type Task struct {
	ID        string            `json:"task_id"`
	Status    Status            `json:"status"`
	Progress  int               `json:"progress"`
	Results   []analysis.Result `json:"data"`
	Error     string            `json:"error,omitempty"`
	Request   Request           `json:"request"`
	Summary   *Summary          `json:"summary,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Update is a partial change to a Task. Zero fields are left untouched.
type Update struct {
	Status   Status
	Progress *int
	Results  []analysis.Result
	Summary  *Summary
	Error    string
}

func progress(p int) *int {
	return &p
}
