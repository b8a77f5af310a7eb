package platform

import (
	"errors"
	"net/url"
	"strings"

	"github.com/atotto/clipboard"
)

var ErrNoPath = errors.New("clipboard holds no file path")

// ClipboardPath returns the file path currently on the clipboard. File
// managers put either a plain path or a file:// URI there.
func ClipboardPath() (string, error) {
	text, err := clipboard.ReadAll()
	if err != nil {
		return "", err
	}
	return ParsePath(text)
}

func ParsePath(text string) (string, error) {
	line := strings.TrimSpace(text)
	if i := strings.IndexAny(line, "\r\n"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	line = strings.Trim(line, `"'`)
	if line == "" {
		return "", ErrNoPath
	}

	if strings.HasPrefix(line, "file://") {
		u, err := url.Parse(line)
		if err != nil || u.Path == "" {
			return "", ErrNoPath
		}
		return fromURIPath(u.Path), nil
	}

	if !looksLikePath(line) {
		return "", ErrNoPath
	}
	return line, nil
}
