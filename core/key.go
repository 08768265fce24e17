package core

import (
	"fmt"
	"strings"
)

// keyEscaper makes the later slash substitution unambiguous: backslashes are
// doubled and literal pipes gain a backslash before any slash becomes a pipe.
var keyEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`)

// CacheKey encodes a URL as a string usable as a single filesystem path
// segment. The encoding is deterministic and keeps distinct URLs distinct:
// escape `\` to `\\`, `|` to `\|`, then replace every `/` with `|`.
//
// The input must be a parsed, non-empty URL string. Empty strings and the
// special names "." and ".." would collide with directory metadata entries,
// so they are rejected as programming errors.
func CacheKey(url string) string {
	switch url {
	case "", ".", "..":
		panic(fmt.Sprintf("core: invalid cache key source %q", url))
	}
	return strings.ReplaceAll(keyEscaper.Replace(url), "/", "|")
}
