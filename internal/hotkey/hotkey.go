// Package hotkey binds global keyboard shortcuts.
package hotkey

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	hook "github.com/robotn/gohook"

	"github.com/pink-tools/pink-otel"
)

var ErrInvalidCombo = errors.New("invalid hotkey")

var modifiers = map[string]string{
	"ctrl":    "ctrl",
	"control": "ctrl",
	"alt":     "alt",
	"option":  "alt",
	"shift":   "shift",
	"cmd":     "cmd",
	"super":   "cmd",
	"meta":    "cmd",
}

var modifierOrder = []string{"ctrl", "alt", "shift", "cmd"}

// Combo is a parsed shortcut: one key plus zero or more modifiers.
type Combo struct {
	Key       string
	Modifiers []string
}

// Parse reads shortcuts like "ctrl+alt+1" or "Ctrl+Shift+S".
func Parse(s string) (Combo, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	var c Combo
	seen := map[string]bool{}
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return Combo{}, fmt.Errorf("%w: %q", ErrInvalidCombo, s)
		}
		if m, ok := modifiers[p]; ok {
			seen[m] = true
			continue
		}
		if c.Key != "" {
			return Combo{}, fmt.Errorf("%w: %q has two keys", ErrInvalidCombo, s)
		}
		c.Key = p
	}
	if c.Key == "" {
		return Combo{}, fmt.Errorf("%w: %q has no key", ErrInvalidCombo, s)
	}
	for _, m := range modifierOrder {
		if seen[m] {
			c.Modifiers = append(c.Modifiers, m)
		}
	}
	return c, nil
}

// Keys returns the key list in the order gohook expects: key first.
func (c Combo) Keys() []string {
	return append([]string{c.Key}, c.Modifiers...)
}

func (c Combo) String() string {
	parts := make([]string, 0, len(c.Modifiers)+1)
	for _, m := range c.Modifiers {
		parts = append(parts, strings.ToUpper(m[:1])+m[1:])
	}
	return strings.Join(append(parts, strings.ToUpper(c.Key)), "+")
}

type Binding struct {
	Combo  string
	Action func()
}

// Listener owns the global keyboard hook.
type Listener struct {
	mu      sync.Mutex
	running bool
}

func NewListener() *Listener {
	return &Listener{}
}

// Register parses every binding before touching the hook, so a bad combo
// leaves nothing half-registered.
func (l *Listener) Register(bindings []Binding) error {
	parsed := make([]Combo, len(bindings))
	var errs []error
	for i, b := range bindings {
		c, err := Parse(b.Combo)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		parsed[i] = c
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	for i, b := range bindings {
		action := b.Action
		hook.Register(hook.KeyDown, parsed[i].Keys(), func(e hook.Event) {
			action()
		})
		otel.Info(context.Background(), "hotkey registered", map[string]any{"hotkey": parsed[i].String()})
	}
	return nil
}

func (l *Listener) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	s := hook.Start()
	go hook.Process(s)
}

func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return
	}
	l.running = false
	hook.End()
}
