// Package dropwatch assigns custom slots from files dropped into per-slot
// directories.
package dropwatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pink-tools/pink-otel"

	"github.com/pink-tools/se-player/internal/sound"
)

const DefaultDebounce = 250 * time.Millisecond

// DropFunc receives the slot and the path of a file that settled in its directory.
type DropFunc func(slot sound.ID, path string)

type Config struct {
	Root     string
	Slots    []sound.ID
	Debounce time.Duration
	OnDrop   DropFunc
}

// Watcher reports files created or rewritten under Root/<slot>/ once they
// have been quiet for the debounce period.
type Watcher struct {
	cfg Config
	fs  *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer

	done chan struct{}
	wg   sync.WaitGroup
}

func New(cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.OnDrop == nil {
		return nil, fmt.Errorf("dropwatch: OnDrop is required")
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	for _, slot := range cfg.Slots {
		dir := filepath.Join(cfg.Root, string(slot))
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fw.Close()
			return nil, fmt.Errorf("create drop dir: %w", err)
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	return &Watcher{
		cfg:    cfg,
		fs:     fw,
		timers: make(map[string]*time.Timer),
		done:   make(chan struct{}),
	}, nil
}

func (w *Watcher) SlotDir(slot sound.ID) string {
	return filepath.Join(w.cfg.Root, string(slot))
}

func (w *Watcher) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop()
	}()
}

func (w *Watcher) Stop() error {
	select {
	case <-w.done:
		return nil
	default:
		close(w.done)
	}
	err := w.fs.Close()
	w.wg.Wait()

	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = map[string]*time.Timer{}
	w.mu.Unlock()
	return err
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if slot, ok := w.slotFor(ev.Name); ok {
				w.schedule(slot, ev.Name)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			otel.Error(context.Background(), "drop watcher error", map[string]any{"error": err.Error()})
		}
	}
}

func (w *Watcher) slotFor(path string) (sound.ID, bool) {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return "", false
	}
	slot := sound.ID(filepath.Base(filepath.Dir(path)))
	for _, s := range w.cfg.Slots {
		if s == slot {
			return slot, true
		}
	}
	return "", false
}

func (w *Watcher) schedule(slot sound.ID, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case <-w.done:
			return
		default:
		}
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			return
		}
		w.cfg.OnDrop(slot, path)
	})
}
