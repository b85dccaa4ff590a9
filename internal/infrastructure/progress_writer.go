package infrastructure

import (
	"context"
	"time"

	"github.com/yourusername/tubefetch/internal/domain"
	"golang.org/x/time/rate"
)

// progressWriter counts bytes written to it and forwards them to a
// ProgressFunc. Calls are emitted whenever the integer percentage rises and
// otherwise at most once per interval.
type progressWriter struct {
	ctx         context.Context
	total       int64
	done        int64
	lastPercent int
	report      domain.ProgressFunc
	sometimes   rate.Sometimes
}

func newProgressWriter(ctx context.Context, total int64, interval time.Duration, report domain.ProgressFunc) *progressWriter {
	return &progressWriter{
		ctx:         ctx,
		total:       total,
		lastPercent: -1,
		report:      report,
		sometimes:   rate.Sometimes{Interval: interval},
	}
}

func (w *progressWriter) Write(p []byte) (int, error) {
	if err := w.ctx.Err(); err != nil {
		return 0, err
	}
	w.done += int64(len(p))
	if w.report == nil {
		return len(p), nil
	}

	if percent := w.percent(); percent > w.lastPercent {
		w.lastPercent = percent
		w.report(w.done, w.total)
		return len(p), nil
	}
	w.sometimes.Do(func() {
		w.report(w.done, w.total)
	})
	return len(p), nil
}

// Finish reports the final byte count unconditionally
func (w *progressWriter) Finish() {
	if w.report != nil {
		w.report(w.done, w.total)
	}
}

func (w *progressWriter) percent() int {
	if w.total <= 0 {
		return -1
	}
	p := int(w.done * 100 / w.total)
	if p > 100 {
		p = 100
	}
	return p
}
