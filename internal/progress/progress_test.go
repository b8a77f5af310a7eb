package progress

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	mu        sync.Mutex
	fraction  float64
	done      chan struct{}
	completed atomic.Bool
}

func newFakeHandle() *fakeHandle { return &fakeHandle{done: make(chan struct{})} }

func (f *fakeHandle) Progress() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fraction
}

func (f *fakeHandle) set(v float64) {
	f.mu.Lock()
	f.fraction = v
	f.mu.Unlock()
}

func (f *fakeHandle) Done() <-chan struct{} { return f.done }
func (f *fakeHandle) Completed() bool       { return f.completed.Load() }

func (f *fakeHandle) complete() {
	f.completed.Store(true)
	close(f.done)
}

func (f *fakeHandle) stop() { close(f.done) }

type recorder struct {
	mu    sync.Mutex
	ticks []float64
	dones int
	// ticksAfterDone counts ticks that arrived after onDone.
	ticksAfterDone int
}

func (r *recorder) tick(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dones > 0 {
		r.ticksAfterDone++
	}
	r.ticks = append(r.ticks, v)
}

func (r *recorder) done() {
	r.mu.Lock()
	r.dones++
	r.mu.Unlock()
}

func (r *recorder) snapshot() ([]float64, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.ticks...), r.dones, r.ticksAfterDone
}

func TestReporter_TicksUntilCompletion(t *testing.T) {
	rep := New(time.Millisecond)
	h := newFakeHandle()
	rec := &recorder{}

	rep.Track(h, rec.tick, rec.done)

	h.set(0.5)
	require.Eventually(t, func() bool {
		ticks, _, _ := rec.snapshot()
		return len(ticks) > 0 && ticks[len(ticks)-1] == 0.5
	}, time.Second, time.Millisecond)

	h.complete()
	rep.Wait()

	ticks, dones, after := rec.snapshot()
	assert.Equal(t, 1, dones)
	assert.Zero(t, after)
	assert.Equal(t, 1.0, ticks[len(ticks)-1], "completion reports a full bar")
	for i := 1; i < len(ticks); i++ {
		assert.GreaterOrEqual(t, ticks[i], ticks[i-1])
	}
}

func TestReporter_StopTearsDownWithoutFinalTick(t *testing.T) {
	rep := New(time.Millisecond)
	h := newFakeHandle()
	h.set(0.3)
	rec := &recorder{}

	rep.Track(h, rec.tick, rec.done)
	require.Eventually(t, func() bool {
		ticks, _, _ := rec.snapshot()
		return len(ticks) >= 2
	}, time.Second, time.Millisecond)

	h.stop()
	rep.Wait()

	ticks, dones, after := rec.snapshot()
	assert.Equal(t, 1, dones)
	assert.Zero(t, after)
	for _, v := range ticks {
		assert.Equal(t, 0.3, v)
	}
}

func TestReporter_AlreadyRemovedHandle(t *testing.T) {
	rep := New(time.Millisecond)
	h := newFakeHandle()
	h.stop()
	rec := &recorder{}

	rep.Track(h, rec.tick, rec.done)
	rep.Wait()

	ticks, dones, _ := rec.snapshot()
	assert.Empty(t, ticks)
	assert.Equal(t, 1, dones)
}

func TestReporter_IndependentPerHandle(t *testing.T) {
	rep := New(time.Millisecond)
	a, b := newFakeHandle(), newFakeHandle()
	a.set(0.1)
	b.set(0.9)
	recA, recB := &recorder{}, &recorder{}

	rep.Track(a, recA.tick, recA.done)
	rep.Track(b, recB.tick, recB.done)

	a.stop()
	require.Eventually(t, func() bool {
		_, d, _ := recA.snapshot()
		return d == 1
	}, time.Second, time.Millisecond)

	_, doneB, _ := recB.snapshot()
	assert.Zero(t, doneB, "stopping one sound leaves the other running")

	b.complete()
	rep.Wait()
	ticksB, _, _ := recB.snapshot()
	assert.Equal(t, 1.0, ticksB[len(ticksB)-1])
}

// stoppingHandle is removed while its nth progress sample is being read.
type stoppingHandle struct {
	*fakeHandle
	calls  atomic.Int32
	stopAt int32
}

func (s *stoppingHandle) Progress() float64 {
	f := s.fakeHandle.Progress()
	if s.calls.Add(1) == s.stopAt {
		s.stop()
	}
	return f
}

func TestReporter_NoTickForSampleTakenDuringRemoval(t *testing.T) {
	for _, stopAt := range []int32{1, 3} {
		rep := New(time.Millisecond)
		h := &stoppingHandle{fakeHandle: newFakeHandle(), stopAt: stopAt}
		h.set(0.4)
		rec := &recorder{}

		rep.Track(h, rec.tick, rec.done)
		rep.Wait()

		ticks, dones, _ := rec.snapshot()
		assert.Equal(t, 1, dones, "stopAt=%d", stopAt)
		assert.Len(t, ticks, int(stopAt-1), "stopAt=%d", stopAt)
	}
}

func TestNew_DefaultInterval(t *testing.T) {
	assert.Equal(t, DefaultInterval, New(0).interval)
}
