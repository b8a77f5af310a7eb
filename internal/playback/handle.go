package playback

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/pink-tools/se-player/internal/sound"
)

// Player is one playback resource. Tones and decoded files both sit behind
// it; the tracker never looks past this interface.
type Player interface {
	Start() error
	// Stop halts playback and releases the resource. Safe to call twice.
	Stop()
	SetVolume(v float64)
	// Rebind moves a playing resource to another output device.
	Rebind(deviceID string) error
	Device() string
	// Progress reports elapsed and total play time. total is 0 when unknown.
	Progress() (elapsed, total time.Duration)
	// Done is closed when the source has played out.
	Done() <-chan struct{}
}

// Handle is one in-flight playback owned by a Tracker.
type Handle struct {
	ID        uuid.UUID
	Sound     sound.ID
	StartedAt time.Time

	player    Player
	removed   chan struct{}
	once      sync.Once
	completed atomic.Bool
}

func newHandle(id sound.ID, p Player) *Handle {
	return &Handle{
		ID:        uuid.New(),
		Sound:     id,
		StartedAt: time.Now(),
		player:    p,
		removed:   make(chan struct{}),
	}
}

// Done is closed once the handle has left the active set, whether it
// played out or was stopped.
func (h *Handle) Done() <-chan struct{} { return h.removed }

func (h *Handle) Alive() bool {
	select {
	case <-h.removed:
		return false
	default:
		return true
	}
}

// Completed reports whether the handle ended by playing out.
func (h *Handle) Completed() bool { return h.completed.Load() }

func (h *Handle) Device() string { return h.player.Device() }

// Progress returns the played fraction in [0,1]; 0 while the total is unknown.
func (h *Handle) Progress() float64 {
	elapsed, total := h.player.Progress()
	if total <= 0 {
		return 0
	}
	f := float64(elapsed) / float64(total)
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// markRemoved reports true only for the first caller.
func (h *Handle) markRemoved() bool {
	first := false
	h.once.Do(func() {
		first = true
		close(h.removed)
	})
	return first
}
