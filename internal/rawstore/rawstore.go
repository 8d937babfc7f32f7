// Package rawstore keeps verbatim raw copies (.eml files) of mirrored
// messages on local disk, addressed by the path stored on the message row.
package rawstore

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store writes raw message copies under a base directory, one subdirectory
// per account email address.
type Store struct {
	dir string
}

func New(dir string) *Store {
	return &Store{dir: dir}
}

// Save writes the raw message for one mirrored row and returns the path the
// row should record.
func (s *Store) Save(accountEmail string, messageID int64, raw []byte) (string, error) {
	dir := filepath.Join(s.dir, accountEmail)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create raw directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%d.eml", messageID))
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", fmt.Errorf("failed to write raw copy: %w", err)
	}

	return path, nil
}

// Remove deletes a cached raw copy. A missing file is not an error; the row
// may never have been cached.
func (s *Store) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove raw copy: %w", err)
	}
	return nil
}

// RemoveAll deletes a set of cached raw copies, ignoring missing files.
func (s *Store) RemoveAll(paths []string) error {
	for _, path := range paths {
		if err := s.Remove(path); err != nil {
			return err
		}
	}
	return nil
}
