// Package ping smooths a client's keep-alive cadence into a moving average
// and watches it for sustained degradation.
package ping

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Weight of a new sample in the moving average.
const Weight = 0.2

// Tracker keeps an exponential moving average of the time between
// keep-alive acknowledgments.
type Tracker struct {
	clock clock.Clock

	mu      sync.Mutex
	last    time.Time
	avg     float64
	samples int
}

// NewTracker starts measuring from now.
func NewTracker(c clock.Clock) *Tracker {
	if c == nil {
		c = clock.New()
	}
	return &Tracker{clock: c, last: c.Now()}
}

// Observe records an acknowledgment at the current time and returns the
// elapsed time since the previous one.
func (t *Tracker) Observe() time.Duration {
	now := t.clock.Now()
	t.mu.Lock()
	sample := now.Sub(t.last)
	t.last = now
	t.mu.Unlock()
	t.Add(sample)
	return sample
}

// Add folds one sample into the average. The first sample seeds it.
func (t *Tracker) Add(sample time.Duration) {
	ms := float64(sample) / float64(time.Millisecond)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.samples == 0 {
		t.avg = ms
	} else {
		t.avg = t.avg*(1-Weight) + ms*Weight
	}
	t.samples++
}

// Average returns the current moving average, zero before any sample.
func (t *Tracker) Average() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return time.Duration(t.avg * float64(time.Millisecond))
}

// Samples returns how many samples have been folded in.
func (t *Tracker) Samples() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.samples
}

// Watchdog checks a tracker's average on a fixed interval.
type Watchdog struct {
	Tracker   *Tracker
	Interval  time.Duration
	Threshold time.Duration
	// OnHighLatency is called once, from the watchdog goroutine, the first
	// time the average exceeds Threshold. The watchdog stops afterwards.
	OnHighLatency func(avg time.Duration)

	clock clock.Clock
}

func NewWatchdog(c clock.Clock, t *Tracker, interval, threshold time.Duration, onHigh func(time.Duration)) *Watchdog {
	if c == nil {
		c = clock.New()
	}
	return &Watchdog{
		Tracker:       t,
		Interval:      interval,
		Threshold:     threshold,
		OnHighLatency: onHigh,
		clock:         c,
	}
}

// Start arms the ticker and runs the checks until ctx ends or the
// threshold is crossed. The returned channel closes when the watchdog stops.
func (w *Watchdog) Start(ctx context.Context) <-chan struct{} {
	ticker := w.clock.Ticker(w.Interval)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if avg := w.Tracker.Average(); avg > w.Threshold {
					if w.OnHighLatency != nil {
						w.OnHighLatency(avg)
					}
					return
				}
			}
		}
	}()
	return done
}
