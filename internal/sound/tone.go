package sound

import (
	"math"
	"time"

	"github.com/gopxl/beep/v2"
)

// Ramp says how a Curve reaches a point's value from the previous point.
type Ramp int

const (
	Step Ramp = iota
	Linear
	Exponential
)

type Point struct {
	At    time.Duration
	Value float64
	Ramp  Ramp
}

// Curve is a piecewise automation curve. Points must be sorted by At.
type Curve []Point

func (c Curve) At(t time.Duration) float64 {
	if len(c) == 0 {
		return 0
	}
	if t < c[0].At {
		return c[0].Value
	}

	i := len(c) - 1
	for j := 1; j < len(c); j++ {
		if c[j].At > t {
			i = j - 1
			break
		}
	}
	if i == len(c)-1 {
		return c[i].Value
	}

	from, to := c[i], c[i+1]
	span := to.At - from.At
	if span <= 0 {
		return to.Value
	}
	frac := float64(t-from.At) / float64(span)

	switch to.Ramp {
	case Linear:
		return from.Value + (to.Value-from.Value)*frac
	case Exponential:
		// An exponential ramp is undefined through zero; hold instead.
		if from.Value <= 0 || to.Value <= 0 {
			return from.Value
		}
		return from.Value * math.Pow(to.Value/from.Value, frac)
	default:
		return from.Value
	}
}

// Tone is a synthesized sound: sine oscillators following frequency curves,
// summed and shaped by a gain envelope.
type Tone struct {
	Oscillators []Curve
	Gain        Curve
	Length      time.Duration
}

func (t *Tone) Duration() time.Duration { return t.Length }

func (t *Tone) Open() (beep.StreamSeekCloser, beep.Format, error) {
	format := beep.Format{SampleRate: SampleRate, NumChannels: 2, Precision: 2}
	return &memStream{samples: t.render(SampleRate)}, format, nil
}

func (t *Tone) render(rate beep.SampleRate) [][2]float64 {
	n := rate.N(t.Length)
	out := make([][2]float64, n)
	phases := make([]float64, len(t.Oscillators))

	for i := 0; i < n; i++ {
		at := rate.D(i)
		var s float64
		for k, osc := range t.Oscillators {
			s += math.Sin(phases[k])
			phases[k] += 2 * math.Pi * osc.At(at) / float64(rate)
		}
		s *= t.Gain.At(at)
		out[i] = [2]float64{s, s}
	}
	return out
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func steps(freqs ...float64) Curve {
	c := make(Curve, len(freqs))
	for i, f := range freqs {
		c[i] = Point{At: ms(100 * i), Value: f}
	}
	return c
}

// fade rises to peak in 10ms and falls linearly to silence at length.
func fade(peak float64, length time.Duration) Curve {
	return Curve{
		{At: 0, Value: 0},
		{At: ms(10), Value: peak, Ramp: Linear},
		{At: length, Value: 0, Ramp: Linear},
	}
}

// pluck rises to peak in 1ms and decays exponentially until length.
func pluck(peak float64, length time.Duration) Curve {
	return Curve{
		{At: 0, Value: 0},
		{At: ms(1), Value: peak, Ramp: Linear},
		{At: length, Value: 0.001, Ramp: Exponential},
	}
}

func sweep(from, to float64, length time.Duration) Curve {
	return Curve{
		{At: 0, Value: from},
		{At: length, Value: to, Ramp: Exponential},
	}
}

func presetTones() map[ID]*Tone {
	return map[ID]*Tone{
		Notification: {
			Oscillators: []Curve{{
				{At: 0, Value: 800},
				{At: ms(100), Value: 600},
				{At: ms(200), Value: 800},
			}},
			Gain:   fade(0.3, ms(300)),
			Length: ms(300),
		},
		Click: {
			Oscillators: []Curve{sweep(2000, 100, ms(100))},
			Gain:        pluck(0.2, ms(100)),
			Length:      ms(100),
		},
		Success: {
			Oscillators: []Curve{steps(523, 659, 784, 1047)},
			Gain:        fade(0.25, ms(400)),
			Length:      ms(400),
		},
		Error: {
			Oscillators: []Curve{steps(784, 659, 523, 392)},
			Gain:        fade(0.3, ms(400)),
			Length:      ms(400),
		},
		Alert: {
			Oscillators: []Curve{steps(400)},
			Gain: Curve{
				{At: 0, Value: 0},
				{At: ms(10), Value: 0.3, Ramp: Linear},
				{At: ms(100), Value: 0, Ramp: Linear},
				{At: ms(200), Value: 0.3, Ramp: Linear},
				{At: ms(300), Value: 0, Ramp: Linear},
			},
			Length: ms(300),
		},
		Ding: {
			Oscillators: []Curve{steps(523), steps(659)},
			Gain:        fade(0.2, ms(500)),
			Length:      ms(500),
		},
		Pop: {
			Oscillators: []Curve{sweep(1500, 200, ms(150))},
			Gain:        pluck(0.15, ms(150)),
			Length:      ms(150),
		},
		Chime: {
			Oscillators: []Curve{steps(262, 330, 392, 523, 659)},
			Gain:        fade(0.2, ms(500)),
			Length:      ms(500),
		},
	}
}

// memStream plays a rendered buffer.
type memStream struct {
	samples [][2]float64
	pos     int
}

func (m *memStream) Stream(samples [][2]float64) (int, bool) {
	if m.pos >= len(m.samples) {
		return 0, false
	}
	n := copy(samples, m.samples[m.pos:])
	m.pos += n
	return n, true
}

func (m *memStream) Err() error    { return nil }
func (m *memStream) Len() int      { return len(m.samples) }
func (m *memStream) Position() int { return m.pos }
func (m *memStream) Close() error  { return nil }

func (m *memStream) Seek(p int) error {
	if p < 0 {
		p = 0
	}
	if p > len(m.samples) {
		p = len(m.samples)
	}
	m.pos = p
	return nil
}
