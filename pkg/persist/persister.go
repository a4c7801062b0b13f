package persist

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Persister stores values of one type as files named by key in a directory.
type Persister[T any] struct {
	dir   string
	codec Codec
}

// NewPersister creates a persister rooted at dir. The directory is created on first save.
func NewPersister[T any](dir string, codec Codec) *Persister[T] {
	return &Persister[T]{
		dir:   dir,
		codec: codec,
	}
}

// Path returns the file that holds key.
func (p *Persister[T]) Path(key string) string {
	return filepath.Join(p.dir, key+p.codec.Extension())
}

// Save writes state under key.
func (p *Persister[T]) Save(key string, state *T) error {
	mkErr := os.MkdirAll(p.dir, 0o750)
	if mkErr != nil {
		return mkErr
	}

	return SaveState(p.dir, key, p.codec, state)
}

// Load reads the value stored under key. The boolean is false when no file exists.
func (p *Persister[T]) Load(key string) (*T, bool, error) {
	var state T

	err := LoadState(p.dir, key, p.codec, &state)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, err
	}

	return &state, true, nil
}

// Remove deletes the value stored under key, if any.
func (p *Persister[T]) Remove(key string) error {
	err := os.Remove(p.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return err
}
