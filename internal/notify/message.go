package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/LoppVicious/QuantDesk-Web/internal/scan"
)

func describe(req scan.Request) string {
	sector := req.Sector
	if sector == "" {
		sector = "all"
	}
	return fmt.Sprintf("Sector: %s\nTickers: %d\nLookback: %dd\nMax DTE: %dd\n", sector, req.NumTickers, req.Lookback, req.MaxDTE)
}

// FormatCompletedMessage creates a completion notification body.
func FormatCompletedMessage(id string, req scan.Request, s scan.Summary) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Task: %s\n", id))
	sb.WriteString(describe(req))
	sb.WriteString(fmt.Sprintf("Analysed: %d\n", s.Total))
	sb.WriteString(fmt.Sprintf("OK: %d\n", s.OK))
	sb.WriteString(fmt.Sprintf("Unavailable: %d\n", s.Unavailable))
	sb.WriteString(fmt.Sprintf("Fault: %d\n", s.Fault))
	sb.WriteString(fmt.Sprintf("Duration: %s", s.Duration.Round(time.Second)))

	return sb.String()
}

// FormatFailedMessage creates a failure notification body.
func FormatFailedMessage(id string, req scan.Request, reason string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Task: %s\n", id))
	sb.WriteString(describe(req))
	sb.WriteString(fmt.Sprintf("\nError: %s", reason))

	return sb.String()
}
