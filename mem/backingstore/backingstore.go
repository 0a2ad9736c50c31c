// Package backingstore provides the secondary storage that pages are loaded
// from on a page fault.
package backingstore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/vmsim/mem/vm"
)

// A BackingStore provides the content of pages.
type BackingStore interface {
	// LoadPage reads the PageSize bytes of a page.
	LoadPage(page vm.PageNumber) ([]byte, error)
}

// IOError reports a backing store that cannot be opened or that does not hold
// a complete page.
type IOError struct {
	Op   string
	Path string
	Page vm.PageNumber
	Err  error
}

func (e *IOError) Error() string {
	if e.Op == "open" {
		return fmt.Sprintf("backing store %s: open: %v", e.Path, e.Err)
	}

	return fmt.Sprintf("backing store %s: %s page %d: %v",
		e.Path, e.Op, e.Page, e.Err)
}

// Unwrap returns the underlying error.
func (e *IOError) Unwrap() error {
	return e.Err
}

// Store is a read-only, page-addressed backing store. Page p occupies bytes
// [p*PageSize, (p+1)*PageSize).
type Store struct {
	path   string
	reader io.ReaderAt
	closer io.Closer
	size   int64
}

// Open opens a backing store file.
func Open(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}

	return &Store{
		path:   path,
		reader: f,
		closer: f,
		size:   info.Size(),
	}, nil
}

// NewInMemory creates a backing store over a byte slice.
func NewInMemory(data []byte) *Store {
	return &Store{
		path:   "<memory>",
		reader: bytes.NewReader(data),
		size:   int64(len(data)),
	}
}

// Size returns the number of bytes in the store.
func (s *Store) Size() int64 {
	return s.size
}

// LoadPage reads exactly one page. Each call reads the store; nothing is
// cached.
func (s *Store) LoadPage(page vm.PageNumber) ([]byte, error) {
	buf := make([]byte, vm.PageSize)
	offset := int64(page) * vm.PageSize

	n, err := s.reader.ReadAt(buf, offset)
	if n == vm.PageSize {
		return buf, nil
	}

	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}

	return nil, &IOError{Op: "read", Path: s.path, Page: page, Err: err}
}

// Close releases the underlying file, if any.
func (s *Store) Close() error {
	if s.closer == nil {
		return nil
	}

	return s.closer.Close()
}
