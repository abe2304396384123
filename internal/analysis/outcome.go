package analysis

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("asset not found")

// Kind classifies how a per-ticker analysis ended.
type Kind int

const (
	KindOK Kind = iota
	// KindUnavailable means the data needed was missing. Common and expected.
	KindUnavailable
	// KindFault means something went wrong that should not have.
	KindFault
)

func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindUnavailable:
		return "unavailable"
	case KindFault:
		return "fault"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Outcome is the tagged result of analysing one ticker. Result is set only
// for KindOK; Reason explains the other kinds.
type Outcome struct {
	Ticker string
	Kind   Kind
	Result *Result
	Reason string
}

func ok(r *Result) Outcome {
	return Outcome{Ticker: r.Ticker, Kind: KindOK, Result: r}
}

func unavailable(ticker, reason string) Outcome {
	return Outcome{Ticker: ticker, Kind: KindUnavailable, Reason: reason}
}

func fault(ticker string, err error) Outcome {
	return Outcome{Ticker: ticker, Kind: KindFault, Reason: err.Error()}
}
