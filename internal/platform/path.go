//go:build !windows

package platform

import "strings"

func fromURIPath(p string) string { return p }

func looksLikePath(s string) bool {
	return strings.HasPrefix(s, "/")
}
