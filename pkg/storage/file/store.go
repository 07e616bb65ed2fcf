// Package file keeps each storage key in its own file, the on-disk analogue of
// a device key-value store.
package file

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	fileSuffix = ".json"
	// maxNameLen keeps file names under the common 255 byte limit.
	maxNameLen = 200
	// hashedPrefix contains a byte outside the base64url alphabet so hashed
	// names never collide with encoded ones.
	hashedPrefix = "sha256~"
)

type Store struct {
	dir string
}

// New returns a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("storage dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Name() string { return "file" }

// Path returns the file that holds key. Keys are base64url encoded so any
// string maps to a distinct, portable file name; keys too long for that are
// named by their SHA-256 instead.
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, fileName(key))
}

func fileName(key string) string {
	name := base64.RawURLEncoding.EncodeToString([]byte(key))
	if len(name)+len(fileSuffix) > maxNameLen {
		sum := sha256.Sum256([]byte(key))
		name = hashedPrefix + hex.EncodeToString(sum[:])
	}
	return name + fileSuffix
}

func (s *Store) GetItem(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	b, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %q: %w", key, err)
	}
	return string(b), true, nil
}

// SetItem replaces the value atomically (write to temp file, then rename).
func (s *Store) SetItem(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".cart-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write %q: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %q: %w", key, err)
	}
	if err := os.Rename(tmpName, s.Path(key)); err != nil {
		return fmt.Errorf("rename %q: %w", key, err)
	}
	return nil
}

// Ping checks that the directory is still present.
func (s *Store) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(s.dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", s.dir)
	}
	return nil
}
