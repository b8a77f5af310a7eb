// Package output lists audio output devices and routes playbacks to them.
package output

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultDeviceID selects whatever device the system considers default.
const DefaultDeviceID = ""

const defaultLabel = "Default device"

var (
	ErrRebindUnsupported = errors.New("output rerouting not supported for this session")
	ErrPermissionDenied  = errors.New("output device list not available")
	ErrUnknownDevice     = errors.New("unknown output device")
)

type Device struct {
	ID    string
	Label string
	// SystemDefault marks the device the backend reports as its default.
	SystemDefault bool
}

func (d Device) IsDefault() bool { return d.ID == DefaultDeviceID }

// Enumerator queries the audio backend for playback devices.
type Enumerator interface {
	Devices() ([]Device, error)
}

// Rebinder is a playback resource that can change its output device while playing.
type Rebinder interface {
	Rebind(deviceID string) error
}

// Selector keeps the device list shown to the user. The first entry is
// always the default device.
type Selector struct {
	backend Enumerator

	mu      sync.Mutex
	granted bool
	devices []Device
}

func NewSelector(backend Enumerator) *Selector {
	return &Selector{
		backend: backend,
		devices: []Device{{ID: DefaultDeviceID, Label: defaultLabel}},
	}
}

// ListDevices enumerates on first use and returns the last known list after.
func (s *Selector) ListDevices(ctx context.Context) ([]Device, error) {
	s.mu.Lock()
	if s.granted {
		out := append([]Device(nil), s.devices...)
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Refresh re-queries the backend. When the backend refuses, the list falls
// back to the default device only and ErrPermissionDenied is returned.
func (s *Selector) Refresh(ctx context.Context) ([]Device, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	found, err := s.backend.Devices()

	s.mu.Lock()
	defer s.mu.Unlock()

	list := []Device{{ID: DefaultDeviceID, Label: defaultLabel}}
	if err != nil {
		s.granted = false
		s.devices = list
		return append([]Device(nil), list...), fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}

	for _, d := range found {
		if d.ID == DefaultDeviceID {
			continue
		}
		if d.Label == "" {
			d.Label = fallbackLabel(d.ID)
		}
		list = append(list, d)
	}
	s.granted = true
	s.devices = list
	return append([]Device(nil), list...), nil
}

// Known reports whether id is in the last listed devices.
func (s *Selector) Known(id string) bool {
	if id == DefaultDeviceID {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.devices {
		if d.ID == id {
			return true
		}
	}
	return false
}

func (s *Selector) Label(id string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range s.devices {
		if d.ID == id {
			return d.Label
		}
	}
	return fallbackLabel(id)
}

// Apply moves target to deviceID.
func (s *Selector) Apply(deviceID string, target Rebinder) error {
	if target == nil {
		return ErrRebindUnsupported
	}
	if !s.Known(deviceID) {
		return fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}
	return target.Rebind(deviceID)
}

func fallbackLabel(id string) string {
	if id == DefaultDeviceID {
		return defaultLabel
	}
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return "Audio device " + short
}
