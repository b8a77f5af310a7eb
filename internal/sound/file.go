package sound

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
)

type decodeFunc func(io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

var decoders = map[string]decodeFunc{
	".wav": func(rc io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error) { return wav.Decode(rc) },
	".mp3": mp3.Decode,
}

// SupportedExt reports whether path has an extension File can decode.
func SupportedExt(path string) bool {
	_, ok := decoders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// File is a user-supplied audio clip. The file is read and validated once;
// later plays decode from memory so the original can move or disappear.
type File struct {
	path     string
	decode   decodeFunc
	duration time.Duration

	mu   sync.RWMutex
	data []byte
}

func NewFile(path string) (*File, error) {
	decode, ok := decoders[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFileType, filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}

	stream, format, err := decode(newClipReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFileType, filepath.Base(path), err)
	}
	var duration time.Duration
	if n := stream.Len(); n > 0 {
		duration = format.SampleRate.D(n)
	}
	stream.Close()

	return &File{path: path, decode: decode, duration: duration, data: data}, nil
}

func (f *File) Path() string { return f.path }

func (f *File) Name() string { return filepath.Base(f.path) }

func (f *File) Duration() time.Duration { return f.duration }

func (f *File) Open() (beep.StreamSeekCloser, beep.Format, error) {
	f.mu.RLock()
	data := f.data
	f.mu.RUnlock()

	if data == nil {
		return nil, beep.Format{}, fmt.Errorf("open %s: %w", f.Name(), ErrReleased)
	}
	stream, format, err := f.decode(newClipReader(data))
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", f.Name(), err)
	}
	return stream, format, nil
}

// Close drops the buffered clip. Streams already opened keep playing.
func (f *File) Close() error {
	f.mu.Lock()
	f.data = nil
	f.mu.Unlock()
	return nil
}

// clipReader keeps the reader seekable so decoders can report a length.
type clipReader struct {
	*bytes.Reader
}

func newClipReader(data []byte) clipReader { return clipReader{bytes.NewReader(data)} }

func (clipReader) Close() error { return nil }
