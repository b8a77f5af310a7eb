package bridge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

var ErrNotRunning = errors.New("player not running")

const dialTimeout = 2 * time.Second

// Call sends one request to the player listening on addr.
func Call(ctx context.Context, addr string, req Request) (Response, error) {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrNotRunning, err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	} else {
		conn.SetDeadline(time.Now().Add(5 * time.Second))
	}

	if err := writeFrame(conn, req); err != nil {
		return Response{}, err
	}

	var resp Response
	if err := readFrame(conn, &resp); err != nil {
		return Response{}, err
	}
	if !resp.OK && resp.Error != "" {
		return resp, errors.New(resp.Error)
	}
	return resp, nil
}

// Running reports whether a player answers on addr.
func Running(ctx context.Context, addr string) bool {
	_, err := Call(ctx, addr, Request{Op: OpStatus})
	return err == nil
}
