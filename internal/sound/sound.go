// Package sound holds the fixed set of sound ids and what each one plays.
package sound

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
)

type ID string

const (
	Notification ID = "notification"
	Click        ID = "click"
	Success      ID = "success"
	Error        ID = "error"
	Alert        ID = "alert"
	Ding         ID = "ding"
	Pop          ID = "pop"
	Chime        ID = "chime"

	Custom1 ID = "custom1"
	Custom2 ID = "custom2"
	Custom3 ID = "custom3"
)

// SampleRate is the rate tones are rendered at and sinks play at.
const SampleRate = beep.SampleRate(44100)

var (
	ErrUnknownSound    = errors.New("unknown sound")
	ErrNotAssigned     = errors.New("custom slot not assigned")
	ErrNotAssignable   = errors.New("sound is not a custom slot")
	ErrInvalidFileType = errors.New("not a playable audio file")
	ErrReleased        = errors.New("source released")
)

// Preset order matches the numbered shortcuts 1..8.
var presetOrder = []ID{Notification, Click, Success, Error, Alert, Ding, Pop, Chime}

var customOrder = []ID{Custom1, Custom2, Custom3}

var defaultLabels = map[ID]string{
	Notification: "Notification",
	Click:        "Click",
	Success:      "Success",
	Error:        "Error",
	Alert:        "Alert",
	Ding:         "Ding",
	Pop:          "Pop",
	Chime:        "Chime",
	Custom1:      "Custom 1",
	Custom2:      "Custom 2",
	Custom3:      "Custom 3",
}

// Source is something that can be opened into a fresh PCM stream.
// Each Open returns an independent stream; the source itself stays reusable.
type Source interface {
	Open() (beep.StreamSeekCloser, beep.Format, error)
	// Duration is the total playing time, or 0 when not known yet.
	Duration() time.Duration
}

func Presets() []ID { return append([]ID(nil), presetOrder...) }

func Customs() []ID { return append([]ID(nil), customOrder...) }

// IDs returns every sound id in display order.
func IDs() []ID { return append(Presets(), customOrder...) }

func Known(id ID) bool {
	_, ok := defaultLabels[id]
	return ok
}

func IsCustom(id ID) bool {
	for _, c := range customOrder {
		if c == id {
			return true
		}
	}
	return false
}

// Registry maps sound ids to their sources. Preset sources are fixed at
// construction; custom slots start empty and can be reassigned.
type Registry struct {
	mu      sync.RWMutex
	sources map[ID]Source
	labels  map[ID]string
}

func NewRegistry() *Registry {
	r := &Registry{
		sources: make(map[ID]Source, len(defaultLabels)),
		labels:  make(map[ID]string, len(defaultLabels)),
	}
	for id, tone := range presetTones() {
		r.sources[id] = tone
	}
	for id, label := range defaultLabels {
		r.labels[id] = label
	}
	return r
}

func (r *Registry) Resolve(id ID) (Source, error) {
	if !Known(id) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSound, id)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.sources[id]
	if !ok || src == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotAssigned, id)
	}
	return src, nil
}

func (r *Registry) IsAssignable(id ID) bool {
	return IsCustom(id)
}

// Assign sets the source of a custom slot. A previously assigned source is
// released if it implements io.Closer.
func (r *Registry) Assign(id ID, src Source) error {
	if !r.IsAssignable(id) {
		return fmt.Errorf("%w: %s", ErrNotAssignable, id)
	}
	if src == nil {
		return fmt.Errorf("assign %s: nil source", id)
	}

	r.mu.Lock()
	prev := r.sources[id]
	r.sources[id] = src
	r.mu.Unlock()

	if c, ok := prev.(io.Closer); ok && prev != src {
		c.Close()
	}
	return nil
}

func (r *Registry) Assigned(id ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sources[id] != nil
}

func (r *Registry) Label(id ID) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if l, ok := r.labels[id]; ok {
		return l
	}
	return string(id)
}

// SetLabel renames a custom slot. Empty labels restore the default.
func (r *Registry) SetLabel(id ID, label string) error {
	if !r.IsAssignable(id) {
		return fmt.Errorf("%w: %s", ErrNotAssignable, id)
	}
	if label == "" {
		label = defaultLabels[id]
	}
	r.mu.Lock()
	r.labels[id] = label
	r.mu.Unlock()
	return nil
}
