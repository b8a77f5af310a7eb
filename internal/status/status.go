// Package status keeps the one-line status message shown to the user.
package status

import (
	"sync"
	"time"
)

const (
	Idle        = "Ready - pick a sound to play"
	RevertAfter = 3 * time.Second
)

// Line shows a message and falls back to the idle text after a delay.
// The message is cosmetic; nothing reads it back as state.
type Line struct {
	idle  string
	delay time.Duration

	mu       sync.Mutex
	current  string
	gen      uint64
	timer    *time.Timer
	onChange func(string)
}

func New(idle string, delay time.Duration) *Line {
	return &Line{idle: idle, delay: delay, current: idle}
}

// OnChange registers fn to receive every displayed message.
func (l *Line) OnChange(fn func(string)) {
	l.mu.Lock()
	l.onChange = fn
	l.mu.Unlock()
}

func (l *Line) Set(msg string) {
	l.mu.Lock()
	l.gen++
	gen := l.gen
	l.current = msg
	if l.timer != nil {
		l.timer.Stop()
	}
	l.timer = time.AfterFunc(l.delay, func() { l.revert(gen) })
	fn := l.onChange
	l.mu.Unlock()

	if fn != nil {
		fn(msg)
	}
}

func (l *Line) Current() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

func (l *Line) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.timer != nil {
		l.timer.Stop()
	}
	l.gen++
}

func (l *Line) revert(gen uint64) {
	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		return
	}
	l.current = l.idle
	fn := l.onChange
	l.mu.Unlock()

	if fn != nil {
		fn(l.idle)
	}
}
