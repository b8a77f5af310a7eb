package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/pink-tools/se-player/internal/sound"
)

// Keymap binds hotkeys and custom slot labels.
type Keymap struct {
	Hotkeys map[sound.ID]string `yaml:"hotkeys"`
	StopAll string              `yaml:"stop_all"`
	Mute    string              `yaml:"mute"`
	Labels  map[sound.ID]string `yaml:"labels"`
}

// DefaultKeymap: ctrl+alt+1..8 for presets in key order, ctrl+shift+1..3
// for custom slots.
func DefaultKeymap() *Keymap {
	km := &Keymap{
		Hotkeys: make(map[sound.ID]string),
		StopAll: "ctrl+alt+s",
		Mute:    "ctrl+alt+m",
		Labels:  make(map[sound.ID]string),
	}
	for i, id := range sound.Presets() {
		km.Hotkeys[id] = "ctrl+alt+" + strconv.Itoa(i+1)
	}
	for i, id := range sound.Customs() {
		km.Hotkeys[id] = "ctrl+shift+" + strconv.Itoa(i+1)
	}
	return km
}

// LoadKeymap reads a YAML keymap and merges it over the defaults. An empty
// combo unbinds the sound.
func LoadKeymap(path string) (*Keymap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keymap: %w", err)
	}

	var file Keymap
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse keymap: %w", err)
	}

	km := DefaultKeymap()
	for id, combo := range file.Hotkeys {
		if !sound.Known(id) {
			return nil, fmt.Errorf("keymap: %w: %q", sound.ErrUnknownSound, id)
		}
		if combo == "" {
			delete(km.Hotkeys, id)
			continue
		}
		km.Hotkeys[id] = combo
	}
	for id, label := range file.Labels {
		if !sound.IsCustom(id) {
			return nil, fmt.Errorf("keymap label: %w: %q", sound.ErrNotAssignable, id)
		}
		km.Labels[id] = label
	}
	if file.StopAll != "" {
		km.StopAll = file.StopAll
	}
	if file.Mute != "" {
		km.Mute = file.Mute
	}
	return km, nil
}
