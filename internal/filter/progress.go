package filter

import (
	"fmt"
	"io"
	"time"
)

// progress renders a line every `every` completions and on the last one.
// It is owned by the coordinator goroutine.
type progress struct {
	out   io.Writer
	total int
	every int
	done  int
	start time.Time
	now   func() time.Time
}

func newProgress(out io.Writer, total, every int, now func() time.Time) *progress {
	return &progress{out: out, total: total, every: every, start: now(), now: now}
}

func (p *progress) step() {
	p.done++
	last := p.done == p.total
	if !last && (p.every <= 0 || p.done%p.every != 0) {
		return
	}

	elapsed := p.now().Sub(p.start)
	pct := float64(p.done) * 100 / float64(p.total)
	fmt.Fprintf(p.out, "Progress: %d/%d (%.1f%%) elapsed %s, ETA %s\n",
		p.done, p.total, pct,
		elapsed.Round(time.Second),
		ETA(elapsed, p.done, p.total).Round(time.Second),
	)
}

// ETA estimates the time left as the average time per completed file
// multiplied by the files remaining.
func ETA(elapsed time.Duration, done, total int) time.Duration {
	if done <= 0 || done >= total {
		return 0
	}
	avg := elapsed / time.Duration(done)
	return avg * time.Duration(total-done)
}
