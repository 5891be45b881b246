// Package filespill buffers a stream of records on disk so that large
// batches do not have to be held in memory.
package filespill

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// ErrClosed is returned by Append after Close.
var ErrClosed = errors.New("spill closed")

// Spill is an append-only gob file of T values.
type Spill[T any] interface {
	Len() int
	Path() string
	Append(items ...T) error
	Get(index int) (T, error)
	Range(fn func(index int, item T) error) error
	Close() error
	// Remove closes the spill and deletes its file.
	Remove() error
}

type spill[T any] struct {
	mu      sync.Mutex
	path    string
	file    *os.File
	buf     *bufio.Writer
	encoder *gob.Encoder
	length  int
	closed  bool
}

// New creates a spill file in dir, or in the OS temp directory when dir is
// empty.
func New[T any](dir string) (Spill[T], error) {
	if dir == "" {
		dir = os.TempDir()
	}

	if err := os.MkdirAll(dir, 0o750); err != nil {
		slog.Error("failed to create spill directory", "path", dir, "error", err)
		return nil, fmt.Errorf("create spill directory: %w", err)
	}

	file, err := os.CreateTemp(dir, "lasso-spill-*.gob")
	if err != nil {
		slog.Error("failed to create spill file", "path", dir, "error", err)
		return nil, fmt.Errorf("create spill file: %w", err)
	}

	buf := bufio.NewWriter(file)

	slog.Debug("created spill", "path", file.Name())

	return &spill[T]{
		path:    file.Name(),
		file:    file,
		buf:     buf,
		encoder: gob.NewEncoder(buf),
	}, nil
}

func (s *spill[T]) Path() string {
	return s.path
}

func (s *spill[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.length
}

func (s *spill[T]) Append(items ...T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	for _, item := range items {
		if err := s.encoder.Encode(item); err != nil {
			slog.Error("failed to encode spill item", "path", s.path, "index", s.length, "error", err)
			return fmt.Errorf("encode item %d: %w", s.length, err)
		}

		s.length++
	}

	return nil
}

func (s *spill[T]) Get(index int) (T, error) {
	var found T

	err := s.Range(func(i int, item T) error {
		if i == index {
			found = item

			return errStop
		}

		return nil
	})
	if errors.Is(err, errStop) {
		return found, nil
	}

	if err != nil {
		return found, err
	}

	return found, fmt.Errorf("index %d out of range [0,%d)", index, s.Len())
}

var errStop = errors.New("stop")

// Range decodes the items in append order. An error from fn stops the
// iteration and is returned.
func (s *spill[T]) Range(fn func(index int, item T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		if err := s.buf.Flush(); err != nil {
			return fmt.Errorf("flush spill: %w", err)
		}
	}

	file, err := os.Open(s.path)
	if err != nil {
		slog.Error("failed to open spill", "path", s.path, "error", err)
		return fmt.Errorf("open spill: %w", err)
	}

	defer func() {
		if err := file.Close(); err != nil {
			slog.Error("failed to close spill reader", "path", s.path, "error", err)
		}
	}()

	decoder := gob.NewDecoder(bufio.NewReader(file))

	for i := range s.length {
		var item T
		if err := decoder.Decode(&item); err != nil {
			return fmt.Errorf("decode item %d: %w", i, err)
		}

		if err := fn(i, item); err != nil {
			return err
		}
	}

	return nil
}

// Close flushes and closes the writer; the items stay readable.
func (s *spill[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	if err := s.buf.Flush(); err != nil {
		_ = s.file.Close()

		return fmt.Errorf("flush spill: %w", err)
	}

	return s.file.Close()
}

func (s *spill[T]) Remove() error {
	closeErr := s.Close()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove spill: %w", err)
	}

	return closeErr
}
