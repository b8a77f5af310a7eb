package daemon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pink-tools/se-player/internal/config"
	"github.com/pink-tools/se-player/internal/hotkey"
	"github.com/pink-tools/se-player/internal/sound"
)

func testDaemon(km *config.Keymap) *Daemon {
	return &Daemon{
		cfg:      &config.Config{Keymap: km},
		registry: sound.NewRegistry(),
	}
}

func TestTrayEntries(t *testing.T) {
	d := testDaemon(config.DefaultKeymap())
	require.NoError(t, d.registry.SetLabel(sound.Custom1, "Airhorn"))

	entries := d.trayEntries()
	require.Len(t, entries, len(sound.IDs()))
	assert.Equal(t, sound.Notification, entries[0].ID)
	assert.Equal(t, "Ctrl+Alt+1", entries[0].Hotkey)
	assert.Equal(t, "Airhorn", entries[8].Label)
	assert.Equal(t, "Ctrl+Shift+1", entries[8].Hotkey)
}

func TestTrayEntries_UnboundSoundHasNoHotkey(t *testing.T) {
	km := config.DefaultKeymap()
	delete(km.Hotkeys, sound.Pop)
	d := testDaemon(km)

	for _, e := range d.trayEntries() {
		if e.ID == sound.Pop {
			assert.Empty(t, e.Hotkey)
		}
	}
}

func TestBindings_AllParse(t *testing.T) {
	d := testDaemon(config.DefaultKeymap())

	bindings := d.bindings()
	assert.Len(t, bindings, len(sound.IDs())+2)
	seen := map[string]bool{}
	for _, b := range bindings {
		c, err := hotkey.Parse(b.Combo)
		require.NoError(t, err, b.Combo)
		assert.False(t, seen[c.String()], "duplicate hotkey %s", c)
		seen[c.String()] = true
	}
}
