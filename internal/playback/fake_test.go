package playback

import (
	"errors"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/pink-tools/se-player/internal/sound"
)

type fakePlayer struct {
	mu        sync.Mutex
	device    string
	volume    float64
	starts    int
	stops     int
	rebindErr error
	elapsed   time.Duration
	total     time.Duration

	done     chan struct{}
	doneOnce sync.Once
}

func (p *fakePlayer) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.starts++
	return nil
}

func (p *fakePlayer) Stop() {
	p.mu.Lock()
	p.stops++
	p.mu.Unlock()
}

func (p *fakePlayer) SetVolume(v float64) {
	p.mu.Lock()
	p.volume = v
	p.mu.Unlock()
}

func (p *fakePlayer) Rebind(deviceID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.rebindErr != nil {
		return p.rebindErr
	}
	p.device = deviceID
	return nil
}

func (p *fakePlayer) Device() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.device
}

func (p *fakePlayer) Progress() (time.Duration, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.elapsed, p.total
}

func (p *fakePlayer) Done() <-chan struct{} { return p.done }

// playOut simulates the source running dry.
func (p *fakePlayer) playOut() { p.doneOnce.Do(func() { close(p.done) }) }

func (p *fakePlayer) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *fakePlayer) Stops() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stops
}

type fakeOpener struct {
	mu        sync.Mutex
	players   []*fakePlayer
	rebindErr error
	openErr   error
}

func (o *fakeOpener) Open(src sound.Source, deviceID string) (Player, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.openErr != nil {
		return nil, o.openErr
	}
	p := &fakePlayer{
		device:    deviceID,
		rebindErr: o.rebindErr,
		total:     src.Duration(),
		done:      make(chan struct{}),
	}
	o.players = append(o.players, p)
	return p, nil
}

func (o *fakeOpener) last() *fakePlayer {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.players[len(o.players)-1]
}

func (o *fakeOpener) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.players)
}

// fileSource stands in for a user clip without touching the filesystem.
type fileSource struct{ d time.Duration }

func (f fileSource) Open() (beep.StreamSeekCloser, beep.Format, error) {
	return nil, beep.Format{}, errors.New("not decodable in tests")
}

func (f fileSource) Duration() time.Duration { return f.d }

// gatedOpener blocks every Open until release is closed.
type gatedOpener struct {
	fakeOpener
	entered chan struct{}
	release chan struct{}
}

func newGatedOpener() *gatedOpener {
	return &gatedOpener{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (o *gatedOpener) Open(src sound.Source, deviceID string) (Player, error) {
	o.entered <- struct{}{}
	<-o.release
	return o.fakeOpener.Open(src, deviceID)
}
