// Package control turns user actions from the tray, hotkeys, the bridge and
// the drop folders into tracker operations and status messages.
package control

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/pink-tools/pink-otel"

	"github.com/pink-tools/se-player/internal/output"
	"github.com/pink-tools/se-player/internal/playback"
	"github.com/pink-tools/se-player/internal/progress"
	"github.com/pink-tools/se-player/internal/sound"
	"github.com/pink-tools/se-player/internal/status"
)

// Indicator shows per-sound playback progress.
type Indicator interface {
	SetProgress(id sound.ID, fraction float64)
	Reset(id sound.ID)
}

// Recorder receives outcomes that never reach the tracker's observers.
type Recorder interface {
	Rejected(reason string)
	Rerouted(err error)
}

type Config struct {
	Registry *sound.Registry
	Tracker  *playback.Tracker
	Selector *output.Selector
	Reporter *progress.Reporter
	Status   *status.Line
	// Clipboard returns a file path offered by the user, if any.
	Clipboard func() (string, error)
	Recorder  Recorder
}

type Surface struct {
	registry  *sound.Registry
	tracker   *playback.Tracker
	selector  *output.Selector
	reporter  *progress.Reporter
	status    *status.Line
	clipboard func() (string, error)
	recorder  Recorder

	mu        sync.Mutex
	indicator Indicator
	current   map[sound.ID]uuid.UUID
}

func New(cfg Config) *Surface {
	s := &Surface{
		registry:  cfg.Registry,
		tracker:   cfg.Tracker,
		selector:  cfg.Selector,
		reporter:  cfg.Reporter,
		status:    cfg.Status,
		clipboard: cfg.Clipboard,
		recorder:  cfg.Recorder,
		current:   make(map[sound.ID]uuid.UUID),
	}
	if s.clipboard == nil {
		s.clipboard = func() (string, error) { return "", errors.New("no clipboard") }
	}
	if s.recorder == nil {
		s.recorder = nopRecorder{}
	}
	return s
}

func (s *Surface) SetIndicator(ind Indicator) {
	s.mu.Lock()
	s.indicator = ind
	s.mu.Unlock()
}

// Toggle starts id, or stops it when it is already playing.
func (s *Surface) Toggle(id sound.ID) error {
	h, err := s.tracker.Toggle(id)
	if err == nil && h == nil {
		s.status.Set("Stopped " + s.registry.Label(id))
		return nil
	}
	return s.started(id, h, err)
}

// Play starts id from the beginning, restarting it if needed.
func (s *Surface) Play(id sound.ID) error {
	h, err := s.tracker.Play(id)
	return s.started(id, h, err)
}

func (s *Surface) started(id sound.ID, h *playback.Handle, err error) error {
	if errors.Is(err, sound.ErrNotAssigned) {
		perr := s.assignFromClipboard(id)
		switch {
		case perr == nil:
			h, err = s.tracker.Play(id)
		case errors.Is(perr, sound.ErrInvalidFileType):
			s.recorder.Rejected("invalid_file")
			return perr
		}
	}
	if errors.Is(err, output.ErrUnknownDevice) && s.fallBack() {
		h, err = s.tracker.Play(id)
	}
	if h == nil {
		s.reject(id, err)
		return err
	}

	s.follow(h)
	if err != nil {
		// Playing, but on the device that was selected when it opened.
		s.recorder.Rerouted(err)
		s.status.Set("Playing " + s.registry.Label(id) + " (stays on the previous device)")
		otel.Info(context.Background(), "sound played", map[string]any{"sound": string(id), "device": h.Device(), "reroute_error": err.Error()})
		return nil
	}
	s.status.Set("Playing " + s.registry.Label(id))
	otel.Info(context.Background(), "sound played", map[string]any{"sound": string(id), "device": h.Device()})
	return nil
}

// fallBack switches to the default device when the selected one is no
// longer listed. It reports whether the selection changed.
func (s *Surface) fallBack() bool {
	current := s.tracker.Settings().DeviceID
	if current == output.DefaultDeviceID || s.selector.Known(current) {
		return false
	}
	err := s.tracker.SetOutputDevice(output.DefaultDeviceID)
	s.recorder.Rerouted(err)
	s.status.Set("Output device disconnected - using the default device")
	otel.Info(context.Background(), "output device gone", map[string]any{"device": current})
	return true
}

func (s *Surface) StopAll() {
	s.tracker.StopAll()
	s.status.Set("Stopped all sounds")
}

// ToggleMute flips mute and returns the new state.
func (s *Surface) ToggleMute() bool {
	muted := !s.tracker.Settings().Muted
	s.SetMuted(muted)
	return muted
}

func (s *Surface) SetMuted(muted bool) {
	s.tracker.SetMuted(muted)
	if muted {
		s.status.Set("Muted")
	} else {
		s.status.Set("Unmuted")
	}
	otel.Info(context.Background(), "mute changed", map[string]any{"muted": muted})
}

func (s *Surface) SetVolumePercent(p int) {
	s.tracker.SetVolume(playback.VolumeFromPercent(p))
	s.status.Set(fmt.Sprintf("Volume %d%%", playback.VolumePercent(s.tracker.Settings().Volume)))
}

// Devices lists output devices, enumerating on first use.
func (s *Surface) Devices(ctx context.Context) ([]output.Device, error) {
	devs, err := s.selector.ListDevices(ctx)
	s.deviceListError(err)
	s.fallBack()
	return devs, err
}

// RefreshDevices re-enumerates outputs. A selected device that vanished is
// replaced by the default device.
func (s *Surface) RefreshDevices(ctx context.Context) ([]output.Device, error) {
	devs, err := s.selector.Refresh(ctx)
	s.deviceListError(err)
	if err == nil {
		s.status.Set(fmt.Sprintf("Found %d output devices", len(devs)))
	}
	s.fallBack()
	return devs, err
}

func (s *Surface) deviceListError(err error) {
	if errors.Is(err, output.ErrPermissionDenied) {
		s.status.Set("Output devices unavailable - using the default device")
		otel.Error(context.Background(), "device list failed", map[string]any{"error": err.Error()})
	}
}

// SelectDevice routes future sounds to deviceID and moves live ones where
// the backend allows it. Sounds that cannot move keep playing on their
// current device.
func (s *Surface) SelectDevice(deviceID string) error {
	if !s.selector.Known(deviceID) {
		err := fmt.Errorf("%w: %s", output.ErrUnknownDevice, deviceID)
		s.status.Set("Unknown output device")
		return err
	}

	label := s.selector.Label(deviceID)
	err := s.tracker.SetOutputDevice(deviceID)
	s.recorder.Rerouted(err)

	switch {
	case err == nil:
		s.status.Set("Output: " + label)
	case errors.Is(err, output.ErrRebindUnsupported):
		s.status.Set("Output: " + label + " (playing sounds stay on the previous device)")
		otel.Info(context.Background(), "reroute unsupported", map[string]any{"device": label})
	default:
		s.status.Set("Output: " + label + " (some sounds could not be moved)")
		otel.Error(context.Background(), "reroute failed", map[string]any{"device": label, "error": err.Error()})
	}
	return err
}

// AssignFile loads path into a custom slot. A rejected file keeps the
// slot's previous sound.
func (s *Surface) AssignFile(id sound.ID, path string) error {
	if !s.registry.IsAssignable(id) {
		s.status.Set(s.registry.Label(id) + " cannot be replaced")
		return fmt.Errorf("%w: %s", sound.ErrNotAssignable, id)
	}

	f, err := sound.NewFile(path)
	if err != nil {
		if errors.Is(err, sound.ErrInvalidFileType) {
			s.status.Set("Not a supported audio file (wav or mp3)")
		} else {
			s.status.Set("Could not read the audio file")
		}
		otel.Error(context.Background(), "assign failed", map[string]any{"sound": string(id), "path": path, "error": err.Error()})
		return err
	}

	s.tracker.Stop(id)
	if err := s.registry.Assign(id, f); err != nil {
		f.Close()
		return err
	}
	s.status.Set(fmt.Sprintf("%s: %s", s.registry.Label(id), f.Name()))
	otel.Info(context.Background(), "custom sound assigned", map[string]any{"sound": string(id), "file": f.Name()})
	return nil
}

// SetLabel renames a custom slot.
func (s *Surface) SetLabel(id sound.ID, label string) error {
	return s.registry.SetLabel(id, label)
}

func (s *Surface) Label(id sound.ID) string { return s.registry.Label(id) }

type Snapshot struct {
	Settings    playback.Settings
	DeviceLabel string
	Playing     []sound.ID
	Message     string
}

func (s *Surface) Snapshot() Snapshot {
	settings := s.tracker.Settings()
	snap := Snapshot{
		Settings:    settings,
		DeviceLabel: s.selector.Label(settings.DeviceID),
		Message:     s.status.Current(),
	}
	for _, id := range sound.IDs() {
		if s.tracker.IsPlaying(id) {
			snap.Playing = append(snap.Playing, id)
		}
	}
	return snap
}

func (s *Surface) assignFromClipboard(id sound.ID) error {
	path, err := s.clipboard()
	if err != nil || !sound.SupportedExt(path) {
		return sound.ErrNotAssigned
	}
	return s.AssignFile(id, path)
}

func (s *Surface) reject(id sound.ID, err error) {
	label := s.registry.Label(id)
	reason := "error"
	switch {
	case errors.Is(err, playback.ErrMuted):
		reason = "muted"
		s.status.Set("Muted - unmute to play " + label)
	case errors.Is(err, sound.ErrNotAssigned):
		reason = "not_assigned"
		s.status.Set(label + " is empty - copy an audio file path or drop a file into its folder")
	case errors.Is(err, sound.ErrUnknownSound):
		reason = "unknown"
		s.status.Set("Unknown sound " + string(id))
	default:
		s.status.Set("Could not play " + label)
		otel.Error(context.Background(), "play failed", map[string]any{"sound": string(id), "error": err.Error()})
	}
	s.recorder.Rejected(reason)
}

// follow drives the indicator for h. Only the newest handle of a sound may
// touch its indicator, so a restart never sees a stale reset.
func (s *Surface) follow(h *playback.Handle) {
	s.mu.Lock()
	s.current[h.Sound] = h.ID
	s.mu.Unlock()

	s.reporter.Track(h,
		func(f float64) {
			if ind := s.indicatorFor(h); ind != nil {
				ind.SetProgress(h.Sound, f)
			}
		},
		func() {
			s.mu.Lock()
			ind := s.indicator
			owner := s.current[h.Sound] == h.ID
			if owner {
				delete(s.current, h.Sound)
			}
			s.mu.Unlock()
			if owner && ind != nil {
				ind.Reset(h.Sound)
			}
		},
	)
}

func (s *Surface) indicatorFor(h *playback.Handle) Indicator {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current[h.Sound] != h.ID {
		return nil
	}
	return s.indicator
}

type nopRecorder struct{}

func (nopRecorder) Rejected(string) {}
func (nopRecorder) Rerouted(error)  {}
