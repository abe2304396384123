package server

import (
	"github.com/LoppVicious/QuantDesk-Web/internal/analysis"
	"github.com/LoppVicious/QuantDesk-Web/internal/scan"
)

func sanitizeTask(t *scan.Task) scan.Task {
	out := *t
	out.Results = analysis.FiniteResults(t.Results)
	return out
}
