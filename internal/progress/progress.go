// Package progress drives per-sound progress indicators.
package progress

import (
	"sync"
	"time"
)

// DefaultInterval is roughly one display frame.
const DefaultInterval = 16 * time.Millisecond

// Trackable is a playback the reporter can follow. *playback.Handle
// satisfies it.
type Trackable interface {
	Progress() float64
	Done() <-chan struct{}
	Completed() bool
}

type Reporter struct {
	interval time.Duration
	wg       sync.WaitGroup
}

func New(interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reporter{interval: interval}
}

// Track calls onTick with the played fraction every interval while h is
// alive. A handle that plays out gets a final onTick(1). onDone runs once
// when h leaves the active set for any reason; no tick follows it.
func (r *Reporter) Track(h Trackable, onTick func(float64), onDone func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.loop(h, onTick, onDone)
	}()
}

func (r *Reporter) loop(h Trackable, onTick func(float64), onDone func()) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	sample(h, onTick)

	for {
		select {
		case <-h.Done():
			if h.Completed() {
				onTick(1)
			}
			onDone()
			return
		case <-ticker.C:
			sample(h, onTick)
		}
	}
}

// sample reports h's fraction unless h was removed, including while the
// fraction was being read.
func sample(h Trackable, onTick func(float64)) {
	if !alive(h) {
		return
	}
	f := h.Progress()
	if !alive(h) {
		return
	}
	onTick(f)
}

// Wait blocks until every tracked loop has finished.
func (r *Reporter) Wait() {
	r.wg.Wait()
}

func alive(h Trackable) bool {
	select {
	case <-h.Done():
		return false
	default:
		return true
	}
}
