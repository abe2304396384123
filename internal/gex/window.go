package gex

// WindowPolicy restricts the strikes returned for display.
//
// Strikes outside spot*(1-Band)..spot*(1+Band) are dropped. When more than
// MaxStrikes remain, every ceil(n/MaxStrikes)-th strike is kept. The
// downsampling is lossy: it bounds response size and says nothing about the
// dropped strikes. Wall computation never goes through the window.
type WindowPolicy struct {
	Band       float64
	MaxStrikes int
}

// DefaultWindow is used when no policy is configured.
var DefaultWindow = WindowPolicy{Band: 0.4, MaxStrikes: 60}

// Apply filters buckets (sorted by strike) and reports whether it had to
// downsample.
func (w WindowPolicy) Apply(buckets []StrikeBucket, spot float64) ([]StrikeBucket, bool) {
	lo, hi := spot*(1-w.Band), spot*(1+w.Band)

	in := make([]StrikeBucket, 0, len(buckets))
	for _, b := range buckets {
		if b.Strike >= lo && b.Strike <= hi {
			in = append(in, b)
		}
	}

	if w.MaxStrikes <= 0 || len(in) <= w.MaxStrikes {
		return in, false
	}

	stride := (len(in) + w.MaxStrikes - 1) / w.MaxStrikes
	out := make([]StrikeBucket, 0, w.MaxStrikes)
	for i := 0; i < len(in); i += stride {
		out = append(out, in[i])
	}
	return out, true
}
