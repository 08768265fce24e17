package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "https:||demon.horse|hireme|#fragment", CacheKey("https://demon.horse/hireme/#fragment"))
	assert.Equal(t, "a:||a|b", CacheKey("a://a/b"))
	assert.Equal(t, `a:||a|foo\\back\|pipe\\\|backpipe`, CacheKey(`a://a/foo\back|pipe\|backpipe`))
}

func TestCacheKeyDistinct(t *testing.T) {
	// A literal slash and its percent-encoded form must not collide.
	assert.NotEqual(t, CacheKey("https://example.com/a/b"), CacheKey("https://example.com/a%2Fb"))
	// A pre-existing pipe must not collide with an encoded slash.
	assert.NotEqual(t, CacheKey("https://example.com/a|b"), CacheKey("https://example.com/a/b"))
}

func TestCacheKeyRejectsReservedNames(t *testing.T) {
	assert.Panics(t, func() { CacheKey("") })
	assert.Panics(t, func() { CacheKey(".") })
	assert.Panics(t, func() { CacheKey("..") })
}
