package urlutil

import (
	"net/url"
)

// ResolveReference resolves rel against base, returning an absolute URL
// string. An absolute rel is returned as-is (normalized).
func ResolveReference(base string, rel string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u, err := b.Parse(rel)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
