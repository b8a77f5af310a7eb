package speaker

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"

	"github.com/pink-tools/se-player/internal/output"
	"github.com/pink-tools/se-player/internal/sound"
)

const bytesPerFrame = channels * 4

// Sink plays one clip on one device.
type Sink struct {
	engine *Engine

	// streamMu guards the stream; the audio callback holds it while reading.
	streamMu sync.Mutex
	clip     beep.StreamSeekCloser
	rate     beep.SampleRate
	stream   beep.Streamer
	buf      [][2]float64

	gain atomic.Uint64

	mu       sync.Mutex
	device   playbackDevice
	deviceID string
	stopped  bool

	done     chan struct{}
	doneOnce sync.Once
}

func newSink(e *Engine, clip beep.StreamSeekCloser, format beep.Format, deviceID string) *Sink {
	var stream beep.Streamer = clip
	if format.SampleRate != sound.SampleRate && format.SampleRate > 0 {
		stream = beep.Resample(4, format.SampleRate, sound.SampleRate, clip)
	}
	s := &Sink{
		engine:   e,
		clip:     clip,
		rate:     format.SampleRate,
		stream:   stream,
		deviceID: deviceID,
		done:     make(chan struct{}),
	}
	s.SetVolume(1)
	return s
}

func (s *Sink) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("sink stopped")
	}
	if s.device == nil {
		return fmt.Errorf("no playback device")
	}
	if err := s.device.Start(); err != nil {
		return fmt.Errorf("playback start failed: %w", err)
	}
	return nil
}

func (s *Sink) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	device := s.device
	s.device = nil
	s.mu.Unlock()

	if device != nil {
		device.Stop()
		device.Uninit()
	}

	s.streamMu.Lock()
	s.clip.Close()
	s.streamMu.Unlock()

	s.finish()
}

func (s *Sink) SetVolume(v float64) {
	s.gain.Store(math.Float64bits(v))
}

func (s *Sink) volume() float64 {
	return math.Float64frombits(s.gain.Load())
}

func (s *Sink) Device() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deviceID
}

// Rebind starts the same stream on deviceID and then retires the current
// device. If the new device cannot start, the sink stays where it was.
func (s *Sink) Rebind(deviceID string) error {
	if !s.engine.LiveReroute() {
		return output.ErrRebindUnsupported
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("rebind: sink stopped")
	}
	if deviceID == s.deviceID {
		return nil
	}

	next, err := s.engine.openDevice(deviceID, s.onSamples)
	if err != nil {
		return fmt.Errorf("rebind to %s: %w", deviceID, err)
	}
	if err := next.Start(); err != nil {
		next.Uninit()
		return fmt.Errorf("rebind start failed: %w", err)
	}

	prev := s.device
	s.device = next
	s.deviceID = deviceID
	if prev != nil {
		prev.Stop()
		prev.Uninit()
	}
	return nil
}

func (s *Sink) Progress() (time.Duration, time.Duration) {
	s.streamMu.Lock()
	defer s.streamMu.Unlock()

	if s.rate <= 0 {
		return 0, 0
	}
	total := s.clip.Len()
	if total <= 0 {
		return 0, 0
	}
	return s.rate.D(s.clip.Position()), s.rate.D(total)
}

func (s *Sink) Done() <-chan struct{} { return s.done }

func (s *Sink) finish() {
	s.doneOnce.Do(func() { close(s.done) })
}

// onSamples is the device data callback. It runs on the audio thread.
func (s *Sink) onSamples(out, _ []byte, frames uint32) {
	s.streamMu.Lock()
	filled, drained := s.pull(int(frames))
	frameBuf := s.buf[:filled]
	n := encodeFrames(out, frameBuf, s.volume())
	s.streamMu.Unlock()

	clear(out[n:])
	if drained {
		s.finish()
	}
}

// pull fills s.buf with up to n frames and reports whether the stream ran dry.
func (s *Sink) pull(n int) (int, bool) {
	if cap(s.buf) < n {
		s.buf = make([][2]float64, n)
	}
	buf := s.buf[:n]

	filled := 0
	for filled < n {
		k, ok := s.stream.Stream(buf[filled:])
		filled += k
		if !ok {
			return filled, true
		}
		if k == 0 {
			break
		}
	}
	return filled, false
}

// encodeFrames writes stereo float32 little-endian frames scaled by gain
// and returns the number of bytes written.
func encodeFrames(out []byte, frames [][2]float64, gain float64) int {
	n := 0
	for _, f := range frames {
		if n+bytesPerFrame > len(out) {
			break
		}
		for ch := 0; ch < channels; ch++ {
			v := f[ch] * gain
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			binary.LittleEndian.PutUint32(out[n:], math.Float32bits(float32(v)))
			n += 4
		}
	}
	return n
}
