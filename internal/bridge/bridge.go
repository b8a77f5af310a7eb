// Package bridge lets other processes drive a running player over loopback
// TCP. Each connection carries one request and one response, both framed as
// a little-endian uint32 length followed by a JSON body.
package bridge

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

const DefaultAddr = "127.0.0.1:7466"

const maxFrame = 1 << 20

const (
	OpPlay       = "play"
	OpStopAll    = "stop_all"
	OpToggleMute = "toggle_mute"
	OpStatus     = "status"
	OpDevices    = "devices"
	OpQuit       = "quit"
)

var (
	ErrFrameTooLarge = errors.New("bridge frame too large")
	ErrUnknownOp     = errors.New("unknown bridge op")
)

type Request struct {
	Op string `json:"op"`
	ID string `json:"id,omitempty"`
}

type Device struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

type Status struct {
	Service string   `json:"service"`
	Status  string   `json:"status"`
	Muted   bool     `json:"muted"`
	Volume  int      `json:"volume"`
	Device  string   `json:"device"`
	Playing []string `json:"playing"`
	Message string   `json:"message,omitempty"`
}

type Response struct {
	OK      bool     `json:"ok"`
	Error   string   `json:"error,omitempty"`
	Message string   `json:"message,omitempty"`
	Muted   *bool    `json:"muted,omitempty"`
	Status  *Status  `json:"status,omitempty"`
	Devices []Device `json:"devices,omitempty"`
}

func writeFrame(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if len(body) > maxFrame {
		return ErrFrameTooLarge
	}

	sizeBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBytes, uint32(len(body)))
	if _, err := w.Write(sizeBytes); err != nil {
		return fmt.Errorf("write size: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

func readFrame(r io.Reader, v any) error {
	sizeBytes := make([]byte, 4)
	if _, err := io.ReadFull(r, sizeBytes); err != nil {
		return fmt.Errorf("read size: %w", err)
	}
	size := binary.LittleEndian.Uint32(sizeBytes)
	if size > maxFrame {
		return ErrFrameTooLarge
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(r, body); err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}
