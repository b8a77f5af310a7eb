// Package playback tracks which sounds are currently playing.
package playback

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pink-tools/se-player/internal/sound"
)

var ErrMuted = errors.New("playback muted")

// Opener turns a sound source into a player routed to deviceID.
type Opener interface {
	Open(src sound.Source, deviceID string) (Player, error)
}

type OpenFunc func(src sound.Source, deviceID string) (Player, error)

func (f OpenFunc) Open(src sound.Source, deviceID string) (Player, error) { return f(src, deviceID) }

// RouteFunc moves a live player to deviceID.
type RouteFunc func(deviceID string, p Player) error

// Settings are the process-wide player settings.
type Settings struct {
	Volume   float64
	Muted    bool
	DeviceID string
}

func DefaultSettings() Settings {
	return Settings{Volume: 0.5}
}

// VolumeFromPercent maps a 0-100 control value to a gain in [0,1].
func VolumeFromPercent(p int) float64 {
	return clampVolume(float64(p) / 100)
}

func VolumePercent(v float64) int {
	return int(clampVolume(v)*100 + 0.5)
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

type EventKind int

const (
	Started EventKind = iota
	Stopped
	Completed
)

func (k EventKind) String() string {
	switch k {
	case Started:
		return "started"
	case Stopped:
		return "stopped"
	case Completed:
		return "completed"
	}
	return "unknown"
}

type Event struct {
	Kind   EventKind
	Handle *Handle
}

// Observer is called after every start and every removal. Each handle
// produces exactly one Started and one Stopped or Completed event.
type Observer func(Event)

// Tracker owns the active set of playbacks. At most one handle per sound id
// is active: playing a sound that is already playing restarts it.
type Tracker struct {
	registry *sound.Registry
	opener   Opener
	route    RouteFunc

	mu        sync.Mutex
	settings  Settings
	active    map[sound.ID][]*Handle
	observers []Observer
}

func New(registry *sound.Registry, opener Opener, settings Settings) *Tracker {
	settings.Volume = clampVolume(settings.Volume)
	return &Tracker{
		registry: registry,
		opener:   opener,
		route:    func(deviceID string, p Player) error { return p.Rebind(deviceID) },
		settings: settings,
		active:   make(map[sound.ID][]*Handle),
	}
}

// SetRouter replaces how live players are moved between devices.
func (t *Tracker) SetRouter(route RouteFunc) {
	t.mu.Lock()
	t.route = route
	t.mu.Unlock()
}

func (t *Tracker) Observe(fn Observer) {
	t.mu.Lock()
	t.observers = append(t.observers, fn)
	t.mu.Unlock()
}

func (t *Tracker) Settings() Settings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settings
}

func (t *Tracker) IsPlaying(id sound.ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active[id]) > 0
}

// Active returns a snapshot of every live handle.
func (t *Tracker) Active() []*Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*Handle
	for _, hs := range t.active {
		out = append(out, hs...)
	}
	return out
}

func (t *Tracker) Handles(id sound.ID) []*Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]*Handle(nil), t.active[id]...)
}

// Play starts id and returns its handle. It fails with ErrMuted while muted
// and with sound.ErrNotAssigned for an empty custom slot. A non-nil handle
// with an error means the sound is playing but could not follow a device
// change made while it was opening.
func (t *Tracker) Play(id sound.ID) (*Handle, error) {
	t.mu.Lock()
	if t.settings.Muted {
		t.mu.Unlock()
		return nil, ErrMuted
	}
	settings := t.settings
	t.mu.Unlock()

	src, err := t.registry.Resolve(id)
	if err != nil {
		return nil, err
	}

	player, err := t.opener.Open(src, settings.DeviceID)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", id, err)
	}
	player.SetVolume(settings.Volume)
	if err := player.Start(); err != nil {
		player.Stop()
		return nil, fmt.Errorf("start %s: %w", id, err)
	}

	h := newHandle(id, player)

	t.mu.Lock()
	if v := t.settings.Volume; v != settings.Volume {
		player.SetVolume(v)
	}
	prev := t.active[id]
	t.active[id] = []*Handle{h}
	device := t.settings.DeviceID
	route := t.route
	t.mu.Unlock()

	t.release(prev, Stopped)
	t.emit(Event{Kind: Started, Handle: h})
	go t.watch(h)

	// The device changed while the player was opening, so SetOutputDevice
	// never saw this handle.
	if device != settings.DeviceID {
		if err := route(device, player); err != nil {
			return h, fmt.Errorf("reroute %s: %w", id, err)
		}
	}
	return h, nil
}

// Toggle stops id if it is playing, otherwise plays it. The returned handle
// is nil when the call stopped playback.
func (t *Tracker) Toggle(id sound.ID) (*Handle, error) {
	t.mu.Lock()
	hs := t.active[id]
	if len(hs) > 0 {
		delete(t.active, id)
		t.mu.Unlock()
		t.release(hs, Stopped)
		return nil, nil
	}
	t.mu.Unlock()
	return t.Play(id)
}

// Stop halts every handle for id. Stopping a sound that is not playing is a no-op.
func (t *Tracker) Stop(id sound.ID) {
	t.mu.Lock()
	hs := t.active[id]
	delete(t.active, id)
	t.mu.Unlock()

	t.release(hs, Stopped)
}

func (t *Tracker) StopAll() {
	t.mu.Lock()
	var hs []*Handle
	for _, list := range t.active {
		hs = append(hs, list...)
	}
	t.active = make(map[sound.ID][]*Handle)
	t.mu.Unlock()

	t.release(hs, Stopped)
}

// SetVolume changes the volume of future and currently playing sounds.
func (t *Tracker) SetVolume(v float64) {
	v = clampVolume(v)

	t.mu.Lock()
	t.settings.Volume = v
	hs := t.snapshotLocked()
	t.mu.Unlock()

	for _, h := range hs {
		h.player.SetVolume(v)
	}
}

// SetMuted only gates future Play calls; sounds already playing continue.
func (t *Tracker) SetMuted(muted bool) {
	t.mu.Lock()
	t.settings.Muted = muted
	t.mu.Unlock()
}

// SetOutputDevice selects the device for future sounds and tries to move
// live ones. Live handles that cannot move keep playing where they are;
// their errors are joined into the result.
func (t *Tracker) SetOutputDevice(deviceID string) error {
	t.mu.Lock()
	t.settings.DeviceID = deviceID
	hs := t.snapshotLocked()
	route := t.route
	t.mu.Unlock()

	var errs []error
	for _, h := range hs {
		if !h.Alive() {
			continue
		}
		if err := route(deviceID, h.player); err != nil {
			errs = append(errs, fmt.Errorf("reroute %s: %w", h.Sound, err))
		}
	}
	return errors.Join(errs...)
}

func (t *Tracker) snapshotLocked() []*Handle {
	var hs []*Handle
	for _, list := range t.active {
		hs = append(hs, list...)
	}
	return hs
}

// watch removes h once its player has played out.
func (t *Tracker) watch(h *Handle) {
	select {
	case <-h.player.Done():
		t.finish(h)
	case <-h.removed:
	}
}

func (t *Tracker) finish(h *Handle) {
	t.mu.Lock()
	found := false
	list := t.active[h.Sound]
	for i, other := range list {
		if other == h {
			list = append(list[:i:i], list[i+1:]...)
			found = true
			break
		}
	}
	if found {
		if len(list) == 0 {
			delete(t.active, h.Sound)
		} else {
			t.active[h.Sound] = list
		}
	}
	t.mu.Unlock()

	if !found {
		return
	}
	h.completed.Store(true)
	if h.markRemoved() {
		h.player.Stop()
		t.emit(Event{Kind: Completed, Handle: h})
	}
}

// release stops handles that were already taken out of the active set.
func (t *Tracker) release(hs []*Handle, kind EventKind) {
	for _, h := range hs {
		if !h.markRemoved() {
			continue
		}
		h.player.Stop()
		t.emit(Event{Kind: kind, Handle: h})
	}
}

func (t *Tracker) emit(ev Event) {
	t.mu.Lock()
	obs := append([]Observer(nil), t.observers...)
	t.mu.Unlock()

	for _, fn := range obs {
		fn(ev)
	}
}
