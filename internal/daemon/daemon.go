package daemon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pink-tools/pink-otel"

	"github.com/pink-tools/se-player/internal/bridge"
	"github.com/pink-tools/se-player/internal/config"
	"github.com/pink-tools/se-player/internal/control"
	"github.com/pink-tools/se-player/internal/dropwatch"
	"github.com/pink-tools/se-player/internal/hotkey"
	"github.com/pink-tools/se-player/internal/metrics"
	"github.com/pink-tools/se-player/internal/output"
	"github.com/pink-tools/se-player/internal/platform"
	"github.com/pink-tools/se-player/internal/playback"
	"github.com/pink-tools/se-player/internal/progress"
	"github.com/pink-tools/se-player/internal/sound"
	"github.com/pink-tools/se-player/internal/speaker"
	"github.com/pink-tools/se-player/internal/status"
	"github.com/pink-tools/se-player/internal/tray"
)

// Menus redraw far less often than a display frame.
const trayInterval = 100 * time.Millisecond

type Daemon struct {
	cfg      *config.Config
	engine   *speaker.Engine
	registry *sound.Registry
	selector *output.Selector
	tracker  *playback.Tracker
	reporter *progress.Reporter
	status   *status.Line
	surface  *control.Surface
	metrics  *metrics.Metrics
	hotkeys  *hotkey.Listener
	bridge   *bridge.Server
	watcher  *dropwatch.Watcher
	tray     *tray.Tray

	cancel   context.CancelFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func New(cfg *config.Config) (*Daemon, error) {
	engine, err := speaker.NewEngine(cfg.LiveReroute)
	if err != nil {
		otel.Error(context.Background(), "audio init failed", map[string]any{"error": err.Error()})
		return nil, err
	}

	d := &Daemon{
		cfg:      cfg,
		engine:   engine,
		registry: sound.NewRegistry(),
		selector: output.NewSelector(engine),
		reporter: progress.New(trayInterval),
		status:   status.New(status.Idle, status.RevertAfter),
		metrics:  metrics.New(),
		hotkeys:  hotkey.NewListener(),
	}

	for id, label := range cfg.Keymap.Labels {
		if err := d.registry.SetLabel(id, label); err != nil {
			otel.Error(context.Background(), "label ignored", map[string]any{"sound": string(id), "error": err.Error()})
		}
	}

	settings := playback.DefaultSettings()
	settings.Volume = playback.VolumeFromPercent(cfg.Volume)
	settings.DeviceID = d.initialDevice(cfg.DeviceID)

	d.tracker = playback.New(d.registry, playback.OpenFunc(d.open), settings)
	d.tracker.SetRouter(func(deviceID string, p playback.Player) error {
		return d.selector.Apply(deviceID, p)
	})
	d.tracker.Observe(d.metrics.Observe)

	d.surface = control.New(control.Config{
		Registry:  d.registry,
		Tracker:   d.tracker,
		Selector:  d.selector,
		Reporter:  d.reporter,
		Status:    d.status,
		Clipboard: platform.ClipboardPath,
		Recorder:  d.metrics,
	})

	d.bridge, err = bridge.Listen(cfg.BridgeAddr, bridgeHandler{d})
	if err != nil {
		engine.Close()
		otel.Error(context.Background(), "bridge listen failed", map[string]any{"addr": cfg.BridgeAddr, "error": err.Error()})
		return nil, err
	}

	d.watcher, err = dropwatch.New(dropwatch.Config{
		Root:   cfg.DropDir,
		Slots:  sound.Customs(),
		OnDrop: func(slot sound.ID, path string) { d.surface.AssignFile(slot, path) },
	})
	if err != nil {
		otel.Error(context.Background(), "drop watcher disabled", map[string]any{"dir": cfg.DropDir, "error": err.Error()})
		d.watcher = nil
	}

	d.tray = tray.New(d.trayEntries(), tray.Actions{
		Toggle:  func(id sound.ID) { d.surface.Toggle(id) },
		StopAll: d.surface.StopAll,
		ToggleMute: func() bool {
			return d.surface.ToggleMute()
		},
		SetVolume: func(p int) {
			d.surface.SetVolumePercent(p)
			d.tray.SetVolume(p)
		},
		SelectDevice: d.surface.SelectDevice,
		Devices:      d.listDevices,
		Quit:         d.Stop,
	}, cfg.Volume, false, settings.DeviceID)

	d.surface.SetIndicator(d.tray)
	d.status.OnChange(d.tray.SetStatus)

	return d, nil
}

// open adapts the engine to the tracker. A failed open must return a nil
// interface, not a nil *Sink.
func (d *Daemon) open(src sound.Source, deviceID string) (playback.Player, error) {
	sink, err := d.engine.Open(src, deviceID)
	if err != nil {
		return nil, err
	}
	return sink, nil
}

// initialDevice keeps a configured device only if the backend lists it.
func (d *Daemon) initialDevice(id string) string {
	if id == output.DefaultDeviceID {
		return id
	}
	if _, err := d.selector.ListDevices(context.Background()); err != nil {
		otel.Error(context.Background(), "device list failed", map[string]any{"error": err.Error()})
	}
	if !d.selector.Known(id) {
		otel.Error(context.Background(), "configured device not found", map[string]any{"device": id})
		return output.DefaultDeviceID
	}
	return id
}

func (d *Daemon) trayEntries() []tray.Entry {
	entries := make([]tray.Entry, 0, len(sound.IDs()))
	for _, id := range sound.IDs() {
		e := tray.Entry{ID: id, Label: d.registry.Label(id)}
		if combo, err := hotkey.Parse(d.cfg.Keymap.Hotkeys[id]); err == nil {
			e.Hotkey = combo.String()
		}
		entries = append(entries, e)
	}
	return entries
}

func (d *Daemon) listDevices(refresh bool) []output.Device {
	ctx := context.Background()
	var devs []output.Device
	if refresh {
		devs, _ = d.surface.RefreshDevices(ctx)
	} else {
		devs, _ = d.surface.Devices(ctx)
	}
	d.tray.SetDevice(d.tracker.Settings().DeviceID)
	return devs
}

func (d *Daemon) bindings() []hotkey.Binding {
	km := d.cfg.Keymap
	var bindings []hotkey.Binding
	for _, id := range sound.IDs() {
		combo, ok := km.Hotkeys[id]
		if !ok {
			continue
		}
		bindings = append(bindings, hotkey.Binding{Combo: combo, Action: func() { d.surface.Toggle(id) }})
	}
	bindings = append(bindings,
		hotkey.Binding{Combo: km.StopAll, Action: d.surface.StopAll},
		hotkey.Binding{Combo: km.Mute, Action: func() { d.tray.SetMuted(d.surface.ToggleMute()) }},
	)
	return bindings
}

// Run blocks on the tray loop until Stop.
func (d *Daemon) Run() {
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel

	otel.Info(ctx, "started", map[string]any{"bridge": d.bridge.Addr(), "drop_dir": d.cfg.DropDir})

	if err := d.hotkeys.Register(d.bindings()); err != nil {
		otel.Error(ctx, "hotkeys disabled", map[string]any{"error": err.Error()})
	} else {
		d.hotkeys.Start()
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.bridge.Serve(); err != nil {
			otel.Error(ctx, "bridge stopped", map[string]any{"error": err.Error()})
		}
	}()

	if d.watcher != nil {
		d.watcher.Start()
	}

	if d.cfg.MetricsAddr != "" {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.metrics.Serve(ctx, d.cfg.MetricsAddr); err != nil {
				otel.Error(ctx, "metrics stopped", map[string]any{"error": err.Error()})
			}
		}()
	}

	d.tray.Run()
}

func (d *Daemon) Stop() {
	d.stopOnce.Do(func() {
		otel.Info(context.Background(), "stopping")
		d.hotkeys.Stop()
		if d.watcher != nil {
			d.watcher.Stop()
		}
		d.bridge.Close()
		if d.cancel != nil {
			d.cancel()
		}
		d.wg.Wait()

		d.tracker.StopAll()
		d.reporter.Wait()
		d.status.Close()
		d.engine.Close()
		d.tray.Quit()
	})
}

// bridgeHandler serves bridge requests from the control surface.
type bridgeHandler struct{ d *Daemon }

func (h bridgeHandler) Play(id string) error {
	sid := sound.ID(id)
	if !sound.Known(sid) {
		return fmt.Errorf("%w: %q", sound.ErrUnknownSound, id)
	}
	return h.d.surface.Play(sid)
}

func (h bridgeHandler) StopAll() { h.d.surface.StopAll() }

func (h bridgeHandler) ToggleMute() bool {
	muted := h.d.surface.ToggleMute()
	h.d.tray.SetMuted(muted)
	return muted
}

func (h bridgeHandler) Status() bridge.Status {
	snap := h.d.surface.Snapshot()
	st := bridge.Status{
		Service: config.ServiceName,
		Status:  "running",
		Muted:   snap.Settings.Muted,
		Volume:  playback.VolumePercent(snap.Settings.Volume),
		Device:  snap.DeviceLabel,
		Playing: make([]string, 0, len(snap.Playing)),
		Message: snap.Message,
	}
	for _, id := range snap.Playing {
		st.Playing = append(st.Playing, string(id))
	}
	return st
}

func (h bridgeHandler) Devices() ([]bridge.Device, error) {
	devs, err := h.d.surface.Devices(context.Background())
	if err != nil && !errors.Is(err, output.ErrPermissionDenied) {
		return nil, err
	}
	selected := h.d.tracker.Settings().DeviceID
	out := make([]bridge.Device, 0, len(devs))
	for _, dev := range devs {
		out = append(out, bridge.Device{ID: dev.ID, Label: dev.Label, Selected: dev.ID == selected})
	}
	return out, err
}

func (h bridgeHandler) Quit() { h.d.Stop() }
