// Package speaker plays sound sources on native output devices through malgo.
package speaker

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/pink-tools/se-player/internal/output"
	"github.com/pink-tools/se-player/internal/sound"
)

const channels = 2

// playbackDevice is the part of *malgo.Device a sink drives.
type playbackDevice interface {
	Start() error
	Stop() error
	Uninit()
}

// Engine owns the audio context. Every playback gets its own device so a
// single sound can be moved without touching the others.
type Engine struct {
	ctx         *malgo.AllocatedContext
	liveReroute bool
	// newDevice replaces native device creation in tests.
	newDevice func(deviceID string, onData func(out, in []byte, frames uint32)) (playbackDevice, error)

	mu  sync.Mutex
	ids map[string]*malgo.DeviceID
}

func NewEngine(liveReroute bool) (*Engine, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("audio context init failed: %w", err)
	}

	return &Engine{
		ctx:         ctx,
		liveReroute: liveReroute,
		ids:         make(map[string]*malgo.DeviceID),
	}, nil
}

func (e *Engine) LiveReroute() bool { return e.liveReroute }

// Devices lists playback devices and remembers their native ids.
func (e *Engine) Devices() ([]output.Device, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx == nil {
		return nil, fmt.Errorf("audio context closed")
	}

	infos, err := e.ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, fmt.Errorf("enumerate playback devices: %w", err)
	}

	devices := make([]output.Device, 0, len(infos))
	ids := make(map[string]*malgo.DeviceID, len(infos))
	for i := range infos {
		info := infos[i]
		id := info.ID
		key := id.String()
		ids[key] = &id
		devices = append(devices, output.Device{
			ID:            key,
			Label:         info.Name(),
			SystemDefault: info.IsDefault != 0,
		})
	}
	e.ids = ids
	return devices, nil
}

// Open prepares a sink for src on deviceID. The sink is silent until Start.
func (e *Engine) Open(src sound.Source, deviceID string) (*Sink, error) {
	clip, format, err := src.Open()
	if err != nil {
		return nil, err
	}

	s := newSink(e, clip, format, deviceID)
	device, err := e.openDevice(deviceID, s.onSamples)
	if err != nil {
		clip.Close()
		return nil, err
	}
	s.device = device
	return s, nil
}

func (e *Engine) openDevice(deviceID string, onData func(out, in []byte, frames uint32)) (playbackDevice, error) {
	if e.newDevice != nil {
		return e.newDevice(deviceID, onData)
	}
	device, err := e.initDevice(deviceID, onData)
	if err != nil {
		return nil, err
	}
	return device, nil
}

func (e *Engine) initDevice(deviceID string, onData func(out, in []byte, frames uint32)) (*malgo.Device, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx == nil {
		return nil, fmt.Errorf("audio context closed")
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = channels
	deviceConfig.SampleRate = uint32(sound.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	if deviceID != output.DefaultDeviceID {
		id, ok := e.ids[deviceID]
		if !ok {
			return nil, fmt.Errorf("%w: %s", output.ErrUnknownDevice, deviceID)
		}
		deviceConfig.Playback.DeviceID = id.Pointer()
	}

	device, err := malgo.InitDevice(e.ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onData})
	if err != nil {
		return nil, fmt.Errorf("playback device init failed: %w", err)
	}
	return device, nil
}

func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx != nil {
		e.ctx.Uninit()
		e.ctx.Free()
		e.ctx = nil
	}
}
