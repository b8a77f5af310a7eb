package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/pink-tools/pink-otel"
)

var ErrAlreadyRunning = errors.New("another player is already listening")

// Handler carries out bridge requests in the running player.
type Handler interface {
	Play(id string) error
	StopAll()
	ToggleMute() bool
	Status() Status
	Devices() ([]Device, error)
	Quit()
}

type Server struct {
	handler Handler
	ln      net.Listener
	wg      sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func Listen(addr string, h Handler) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAlreadyRunning, err)
	}
	return &Server{handler: h, ln: ln}, nil
}

func (s *Server) Addr() string { return s.ln.Addr().String() }

// Serve accepts connections until Close.
func (s *Server) Serve() error {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handle(conn)
		}()
	}
}

func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	err := s.ln.Close()
	s.wg.Wait()
	return err
}

func (s *Server) handle(conn net.Conn) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(5 * time.Second))

	var req Request
	if err := readFrame(conn, &req); err != nil {
		otel.Error(context.Background(), "bridge read failed", map[string]any{"error": err.Error()})
		return
	}

	resp := s.dispatch(req)
	if err := writeFrame(conn, resp); err != nil {
		otel.Error(context.Background(), "bridge write failed", map[string]any{"error": err.Error()})
	}

	// Quit after replying so the caller sees the acknowledgement.
	if req.Op == OpQuit {
		go s.handler.Quit()
	}
}

func (s *Server) dispatch(req Request) Response {
	switch req.Op {
	case OpPlay:
		if req.ID == "" {
			return Response{Error: "missing sound id"}
		}
		if err := s.handler.Play(req.ID); err != nil {
			return Response{Error: err.Error()}
		}
		return Response{OK: true, Message: "playing " + req.ID}
	case OpStopAll:
		s.handler.StopAll()
		return Response{OK: true, Message: "stopped"}
	case OpToggleMute:
		muted := s.handler.ToggleMute()
		return Response{OK: true, Muted: &muted}
	case OpStatus:
		st := s.handler.Status()
		return Response{OK: true, Status: &st}
	case OpDevices:
		devs, err := s.handler.Devices()
		resp := Response{OK: err == nil, Devices: devs}
		if err != nil {
			resp.Error = err.Error()
		}
		return resp
	case OpQuit:
		return Response{OK: true, Message: "stopping"}
	}
	return Response{Error: fmt.Sprintf("%v: %q", ErrUnknownOp, req.Op)}
}
