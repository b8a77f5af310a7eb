package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/pink-tools/se-player/internal/output"
	"github.com/pink-tools/se-player/internal/sound"
)

const maxDevices = 12

// Entry is one sound in the menu.
type Entry struct {
	ID     sound.ID
	Label  string
	Hotkey string
}

// Actions are invoked from menu clicks on the click goroutines.
type Actions struct {
	Toggle       func(id sound.ID)
	StopAll      func()
	ToggleMute   func() bool
	SetVolume    func(percent int)
	SelectDevice func(deviceID string) error
	Devices      func(refresh bool) []output.Device
	Quit         func()
}

type soundItem struct {
	item  *systray.MenuItem
	label string
	bar   string
}

type deviceSlot struct {
	item *systray.MenuItem
	id   string
}

type Tray struct {
	actions Actions
	entries []Entry

	mu          sync.Mutex
	ready       bool
	status      string
	muted       bool
	volume      int
	deviceID    string
	statusItem  *systray.MenuItem
	sounds      map[sound.ID]*soundItem
	stopItem    *systray.MenuItem
	muteItem    *systray.MenuItem
	volumeItems map[int]*systray.MenuItem
	devices     []*deviceSlot
	refreshItem *systray.MenuItem
	quitItem    *systray.MenuItem
}

func New(entries []Entry, actions Actions, volume int, muted bool, deviceID string) *Tray {
	return &Tray{
		actions:  actions,
		entries:  entries,
		volume:   volume,
		muted:    muted,
		deviceID: deviceID,
		sounds:   make(map[sound.ID]*soundItem),
	}
}

// Run blocks on the systray loop. It must be called from the main thread.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

func (t *Tray) onReady() {
	systray.SetTemplateIcon(iconData, iconData)
	systray.SetTooltip("SE Player")

	t.mu.Lock()
	t.statusItem = systray.AddMenuItem(t.statusLocked(), "")
	t.statusItem.Disable()
	systray.AddSeparator()

	for _, e := range t.entries {
		item := systray.AddMenuItem(e.Label, e.Hotkey)
		t.sounds[e.ID] = &soundItem{item: item, label: e.Label}
		go t.onClick(item, func() { t.actions.Toggle(e.ID) })
	}
	systray.AddSeparator()

	t.stopItem = systray.AddMenuItem("Stop all", "")
	t.muteItem = systray.AddMenuItem("Mute", "")
	if t.muted {
		t.muteItem.Check()
	}

	volume := systray.AddMenuItem("Volume", "")
	t.volumeItems = make(map[int]*systray.MenuItem, len(volumeSteps))
	for _, step := range volumeSteps {
		item := volume.AddSubMenuItem(volumeTitle(step), "")
		t.volumeItems[step] = item
		go t.onClick(item, func() { t.actions.SetVolume(step) })
	}
	t.checkVolumeLocked()

	devices := systray.AddMenuItem("Output device", "")
	for i := 0; i < maxDevices; i++ {
		slot := &deviceSlot{item: devices.AddSubMenuItem("", "")}
		slot.item.Hide()
		t.devices = append(t.devices, slot)
		go t.onClick(slot.item, func() { t.selectDevice(slot) })
	}
	t.refreshItem = devices.AddSubMenuItem("Refresh devices", "")

	systray.AddSeparator()
	t.quitItem = systray.AddMenuItem("Quit", "")
	t.ready = true
	t.mu.Unlock()

	go t.handleClicks()
	go func() { t.SetDevices(t.actions.Devices(false)) }()
}

func (t *Tray) onClick(item *systray.MenuItem, fn func()) {
	for range item.ClickedCh {
		fn()
	}
}

func (t *Tray) handleClicks() {
	for {
		select {
		case <-t.stopItem.ClickedCh:
			t.actions.StopAll()
		case <-t.muteItem.ClickedCh:
			t.SetMuted(t.actions.ToggleMute())
		case <-t.refreshItem.ClickedCh:
			t.SetDevices(t.actions.Devices(true))
		case <-t.quitItem.ClickedCh:
			t.actions.Quit()
			return
		}
	}
}

func (t *Tray) selectDevice(slot *deviceSlot) {
	t.mu.Lock()
	id := slot.id
	t.mu.Unlock()

	if !selectionApplied(t.actions.SelectDevice(id)) {
		return
	}
	t.SetDevice(id)
}

// SetDevice moves the checkmark to deviceID.
func (t *Tray) SetDevice(deviceID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.deviceID = deviceID
	if t.ready {
		t.checkDeviceLocked()
	}
}

// SetDevices fills the device submenu. Devices past the menu capacity
// are left out.
func (t *Tray) SetDevices(devs []output.Device) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.ready {
		return
	}
	for i, slot := range t.devices {
		if i >= len(devs) {
			slot.id = ""
			slot.item.Hide()
			continue
		}
		slot.id = devs[i].ID
		slot.item.SetTitle(devs[i].Label)
		slot.item.Show()
	}
	t.checkDeviceLocked()
}

func (t *Tray) checkDeviceLocked() {
	for _, slot := range t.devices {
		if slot.id == t.deviceID {
			slot.item.Check()
		} else {
			slot.item.Uncheck()
		}
	}
}

func (t *Tray) SetVolume(percent int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = percent
	if t.ready {
		t.checkVolumeLocked()
	}
}

func (t *Tray) checkVolumeLocked() {
	selected := nearestStep(t.volume)
	for step, item := range t.volumeItems {
		if step == selected {
			item.Check()
		} else {
			item.Uncheck()
		}
	}
}

func (t *Tray) SetMuted(muted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.muted = muted
	if !t.ready {
		return
	}
	if muted {
		t.muteItem.Check()
	} else {
		t.muteItem.Uncheck()
	}
}

func (t *Tray) SetStatus(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = msg
	if t.ready {
		t.statusItem.SetTitle(t.statusLocked())
	}
}

func (t *Tray) statusLocked() string {
	if t.status == "" {
		return "Status: Ready"
	}
	return t.status
}

// SetLabel renames a sound entry.
func (t *Tray) SetLabel(id sound.ID, label string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.entries {
		if t.entries[i].ID == id {
			t.entries[i].Label = label
		}
	}
	if si, ok := t.sounds[id]; ok {
		si.label = label
		si.item.SetTitle(soundTitle(si.label, si.bar))
	}
}

// SetProgress shows fraction next to the sound. Only changed bars are
// pushed to the menu.
func (t *Tray) SetProgress(id sound.ID, fraction float64) {
	t.setBar(id, bar(fraction, barWidth))
}

func (t *Tray) Reset(id sound.ID) {
	t.setBar(id, "")
}

func (t *Tray) setBar(id sound.ID, b string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	si, ok := t.sounds[id]
	if !ok || si.bar == b {
		return
	}
	si.bar = b
	si.item.SetTitle(soundTitle(si.label, b))
}

func (t *Tray) Quit() {
	systray.Quit()
}
