package watch

import (
	"sync"
	"time"
)

// debouncer coalesces bursts of triggers into one signal on C, sent once
// no trigger has arrived for the quiet window. C holds at most one
// pending signal.
type debouncer struct {
	C <-chan struct{}

	mu     sync.Mutex
	c      chan struct{}
	timer  *time.Timer
	window time.Duration
}

func newDebouncer(window time.Duration) *debouncer {
	c := make(chan struct{}, 1)
	return &debouncer{C: c, c: c, window: window}
}

func (d *debouncer) trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() {
		select {
		case d.c <- struct{}{}:
		default:
		}
	})
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
}
