package daemon

import (
	"context"
	"sync"
	"time"
)

// Debouncer coalesces bursts of change notifications into single run
// triggers. A quiet window must elapse after the last change before a
// trigger fires; changes arriving while a run is in flight queue exactly
// one follow-up trigger.
type Debouncer struct {
	quiet time.Duration

	mu         sync.Mutex
	pending    bool
	running    bool
	followUp   bool
	lastChange time.Time
	changes    int
}

// NewDebouncer creates a debouncer with the given quiet window.
func NewDebouncer(quiet time.Duration) *Debouncer {
	if quiet <= 0 {
		quiet = 2 * time.Second
	}
	return &Debouncer{quiet: quiet}
}

// Change records one file change notification.
func (d *Debouncer) Change() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastChange = time.Now()
	d.changes++
	if d.running {
		d.followUp = true
		return
	}
	d.pending = true
}

// RunStarted marks a run in flight; subsequent changes queue a follow-up.
func (d *Debouncer) RunStarted() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = true
	d.pending = false
	d.changes = 0
}

// RunFinished clears the in-flight state. It reports whether a follow-up
// run was queued while the run was in flight.
func (d *Debouncer) RunFinished() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.running = false
	follow := d.followUp
	d.followUp = false
	if follow {
		d.pending = true
	}
	return follow
}

// Triggers emits on the returned channel each time the quiet window elapses
// with a pending change set. The goroutine exits when ctx is canceled.
func (d *Debouncer) Triggers(ctx context.Context) <-chan int {
	out := make(chan int, 1)
	go func() {
		defer close(out)
		ticker := time.NewTicker(d.quiet / 4)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, ok := d.takeReady(); ok {
					select {
					case out <- n:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()
	return out
}

func (d *Debouncer) takeReady() (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.pending || d.running {
		return 0, false
	}
	if time.Since(d.lastChange) < d.quiet {
		return 0, false
	}
	d.pending = false
	n := d.changes
	d.changes = 0
	return n, true
}
