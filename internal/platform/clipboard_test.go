//go:build !windows

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "/home/me/horn.wav", "/home/me/horn.wav"},
		{"quoted", `"/home/me/my horn.mp3"`, "/home/me/my horn.mp3"},
		{"whitespace", "  /tmp/a.wav\n", "/tmp/a.wav"},
		{"uri", "file:///home/me/my%20horn.wav", "/home/me/my horn.wav"},
		{"first line", "file:///tmp/a.wav\r\nfile:///tmp/b.wav", "/tmp/a.wav"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePath(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePath_NotAPath(t *testing.T) {
	for _, in := range []string{"", "   ", "hello world", "https://example.com/a.wav", `""`, "~/a.wav"} {
		_, err := ParsePath(in)
		assert.ErrorIs(t, err, ErrNoPath, in)
	}
}
