package platform

import (
	"path/filepath"
	"strings"
)

// fromURIPath turns "/C:/Users/x.wav" into "C:\Users\x.wav".
func fromURIPath(p string) string {
	if len(p) >= 3 && p[0] == '/' && p[2] == ':' {
		p = p[1:]
	}
	return filepath.FromSlash(p)
}

func looksLikePath(s string) bool {
	if len(s) >= 3 && s[1] == ':' && (s[2] == '\\' || s[2] == '/') {
		return true
	}
	return strings.HasPrefix(s, `\\`)
}
