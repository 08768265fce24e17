package core

import (
	"fmt"
	"mime"
	"net/http"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
)

// Record is a snapshot of one completed HTTP exchange. It is immutable once
// built: each fetch produces a fresh Record that fully replaces the previous
// one in the store.
type Record struct {
	// URL is the final URL that produced the response, after redirects.
	URL string `json:"url"`
	// RequestURL is the URL that was originally requested.
	RequestURL string `json:"requestUrl"`
	Proto      string `json:"proto"`      // e.g. "HTTP/1.1"
	Status     string `json:"status"`     // e.g. "200 OK"
	StatusCode int    `json:"statusCode"` // e.g. 200
	// Header holds the response headers. The core only consults them to
	// derive the content type and charset.
	Header http.Header `json:"header"`
	// Body is the body exactly as received, before any charset decoding.
	Body      []byte    `json:"body"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// UnknownCharsetError reports a charset declared in the Content-Type header
// that does not resolve to any known encoding. It is distinct from an absent
// charset, which falls back to UTF-8.
type UnknownCharsetError struct {
	Name string
}

func (err *UnknownCharsetError) Error() string {
	return fmt.Sprintf("unknown charset %q", err.Name)
}

// ContentType parses the Content-Type header. It returns an empty media type
// when the header is absent.
func (r *Record) ContentType() (string, map[string]string, error) {
	value := r.Header.Get("Content-Type")
	if value == "" {
		return "", nil, nil
	}
	mediaType, params, err := mime.ParseMediaType(value)
	if err != nil {
		return "", nil, fmt.Errorf("invalid media type %q: %w", value, err)
	}
	return mediaType, params, nil
}

// Charset returns the charset parameter of the Content-Type header, or ""
// when no charset is declared.
func (r *Record) Charset() (string, error) {
	_, params, err := r.ContentType()
	if err != nil {
		return "", err
	}
	return params["charset"], nil
}

// Text decodes the body to a string. A missing charset defaults to UTF-8.
// Invalid byte sequences never fail the decode; each maximal invalid
// subsequence becomes one U+FFFD. A declared but unrecognized charset yields
// UnknownCharsetError.
func (r *Record) Text() (string, error) {
	charset, err := r.Charset()
	if err != nil {
		return "", err
	}
	var enc encoding.Encoding = unicode.UTF8
	if charset != "" {
		enc, err = htmlindex.Get(charset)
		if err != nil {
			return "", &UnknownCharsetError{Name: charset}
		}
	}
	decoded, err := enc.NewDecoder().Bytes(r.Body)
	if err != nil {
		return "", fmt.Errorf("decode body as %s: %w", charset, err)
	}
	return string(decoded), nil
}
