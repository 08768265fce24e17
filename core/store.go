package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const recordExt = ".json"

// Store persists Records on disk, one file per cache key. Redirects are
// modeled as relative symlinks from the requested URL's key to the final
// URL's key, so Load resolves them transparently.
//
// A single process instance is assumed per state directory; concurrent
// writers may race.
type Store struct {
	dir string
}

// NewStore creates the state directory if needed and returns a store rooted
// at it.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the state directory path.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+recordExt)
}

// Load reads the record stored at key. It returns (nil, nil) when no record
// exists, so callers can treat a first-ever fetch without branching on
// errors. A record that exists but cannot be decoded is an error.
func (s *Store) Load(key string) (*Record, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read record: %w", err)
	}
	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("malformed record %s: %w", key, err)
	}
	return &record, nil
}

// Save writes the record under key, replacing any previous content. The
// record is written to a temporary file in the same directory and renamed
// into place so a crash never leaves a partial record behind.
func (s *Store) Save(key string, record *Record) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	tmp, err := os.CreateTemp(s.dir, "record-*")
	if err != nil {
		return fmt.Errorf("create temporary record: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write record: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("store record: %w", err)
	}
	return nil
}

// Alias makes requestedKey resolve to the content stored at finalKey. Any
// regular entry or stale link at requestedKey is removed first, so old data
// never lingers once a URL is known to redirect. The alias is a single hop
// and is replaced on every call.
func (s *Store) Alias(requestedKey, finalKey string) error {
	if requestedKey == finalKey {
		return nil
	}
	requestedPath := s.path(requestedKey)
	if err := os.Remove(requestedPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove stale entry: %w", err)
	}
	// Both entries live in the same directory, so link by file name.
	if err := os.Symlink(finalKey+recordExt, requestedPath); err != nil {
		return fmt.Errorf("create alias: %w", err)
	}
	return nil
}
