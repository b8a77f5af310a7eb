package bridge

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHandler struct {
	mu      sync.Mutex
	played  []string
	stops   int
	muted   bool
	playErr error
	quit    chan struct{}
}

func (f *fakeHandler) Play(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.played = append(f.played, id)
	return nil
}

func (f *fakeHandler) StopAll() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
}

func (f *fakeHandler) ToggleMute() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.muted = !f.muted
	return f.muted
}

func (f *fakeHandler) Status() Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Status{Service: "se-player", Status: "running", Muted: f.muted, Volume: 50, Playing: f.played}
}

func (f *fakeHandler) Devices() ([]Device, error) {
	return []Device{{ID: "", Label: "Default device", Selected: true}, {ID: "dev-1", Label: "Speakers"}}, nil
}

func (f *fakeHandler) Quit() { close(f.quit) }

func startServer(t *testing.T) (*Server, *fakeHandler) {
	t.Helper()
	h := &fakeHandler{quit: make(chan struct{})}
	s, err := Listen("127.0.0.1:0", h)
	require.NoError(t, err)
	go s.Serve()
	t.Cleanup(func() { s.Close() })
	return s, h
}

func TestFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, Request{Op: OpPlay, ID: "ding"}))

	var got Request
	require.NoError(t, readFrame(&buf, &got))
	assert.Equal(t, Request{Op: OpPlay, ID: "ding"}, got)
}

func TestFrame_RejectsOversize(t *testing.T) {
	var buf bytes.Buffer
	size := make([]byte, 4)
	binary.LittleEndian.PutUint32(size, maxFrame+1)
	buf.Write(size)

	var got Request
	require.ErrorIs(t, readFrame(&buf, &got), ErrFrameTooLarge)
}

func TestServer_PlayStopMute(t *testing.T) {
	s, h := startServer(t)
	ctx := context.Background()

	resp, err := Call(ctx, s.Addr(), Request{Op: OpPlay, ID: "success"})
	require.NoError(t, err)
	assert.True(t, resp.OK)

	_, err = Call(ctx, s.Addr(), Request{Op: OpStopAll})
	require.NoError(t, err)

	resp, err = Call(ctx, s.Addr(), Request{Op: OpToggleMute})
	require.NoError(t, err)
	require.NotNil(t, resp.Muted)
	assert.True(t, *resp.Muted)

	h.mu.Lock()
	defer h.mu.Unlock()
	assert.Equal(t, []string{"success"}, h.played)
	assert.Equal(t, 1, h.stops)
}

func TestServer_Status(t *testing.T) {
	s, _ := startServer(t)

	resp, err := Call(context.Background(), s.Addr(), Request{Op: OpStatus})
	require.NoError(t, err)
	require.NotNil(t, resp.Status)
	assert.Equal(t, "running", resp.Status.Status)
	assert.Equal(t, 50, resp.Status.Volume)
	assert.True(t, Running(context.Background(), s.Addr()))
}

func TestServer_Devices(t *testing.T) {
	s, _ := startServer(t)

	resp, err := Call(context.Background(), s.Addr(), Request{Op: OpDevices})
	require.NoError(t, err)
	require.Len(t, resp.Devices, 2)
	assert.True(t, resp.Devices[0].Selected)
}

func TestServer_Errors(t *testing.T) {
	s, h := startServer(t)
	ctx := context.Background()

	_, err := Call(ctx, s.Addr(), Request{Op: "dance"})
	require.ErrorContains(t, err, "unknown bridge op")

	_, err = Call(ctx, s.Addr(), Request{Op: OpPlay})
	require.ErrorContains(t, err, "missing sound id")

	h.mu.Lock()
	h.playErr = errors.New("custom slot not assigned")
	h.mu.Unlock()
	_, err = Call(ctx, s.Addr(), Request{Op: OpPlay, ID: "custom1"})
	require.ErrorContains(t, err, "not assigned")
}

func TestServer_Quit(t *testing.T) {
	s, h := startServer(t)

	resp, err := Call(context.Background(), s.Addr(), Request{Op: OpQuit})
	require.NoError(t, err)
	assert.True(t, resp.OK)

	select {
	case <-h.quit:
	case <-time.After(time.Second):
		t.Fatal("quit not delivered")
	}
}

func TestListen_SecondInstanceFails(t *testing.T) {
	s, _ := startServer(t)
	_, err := Listen(s.Addr(), &fakeHandler{})
	require.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestCall_NotRunning(t *testing.T) {
	s, _ := startServer(t)
	addr := s.Addr()
	require.NoError(t, s.Close())

	_, err := Call(context.Background(), addr, Request{Op: OpStatus})
	require.ErrorIs(t, err, ErrNotRunning)
	assert.False(t, Running(context.Background(), addr))
}
