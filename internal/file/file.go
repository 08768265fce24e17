package file

import (
	"os"
	"path/filepath"
)

// Append opens name for appending, creating it and any parent directories as
// needed.
func Append(name string) (*os.File, error) {
	return OpenFile(name, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0644)
}

func OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(name), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(name, flag, perm)
}
