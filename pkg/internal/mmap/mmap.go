// Package mmap memory-maps the catalog's backing file read-write. It is
// grounded on hupe1980-vecgo's internal/mmap package, which maps read-only
// via golang.org/x/sys/unix; this version additionally supports
// PROT_WRITE and Sync(), since the catalog mutates its mapping in place.
package mmap

import (
	"errors"
	"os"
	"sync/atomic"
)

var (
	// ErrClosed is returned when operating on a mapping after Close.
	ErrClosed = errors.New("mmap: mapping is closed")
	// ErrInvalidSize is returned when a file's size cannot be mapped.
	ErrInvalidSize = errors.New("mmap: invalid file size")
)

// Mapping owns a read-write memory mapping of a file and is responsible for
// unmapping it on Close.
type Mapping struct {
	data   []byte
	size   int
	closed atomic.Bool
	unmap  func([]byte) error
	sync   func([]byte) error
}

// Open maps the file at path read-write. The file must already exist and
// be sized; callers that need to grow it should Truncate before Open.
func Open(path string) (*Mapping, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size := fi.Size()
	if size <= 0 || size > int64(^uint(0)>>1) {
		return nil, ErrInvalidSize
	}

	data, unmapFn, syncFn, err := osMap(f, int(size))
	if err != nil {
		return nil, err
	}

	return &Mapping{data: data, size: int(size), unmap: unmapFn, sync: syncFn}, nil
}

// Bytes returns the mapped region. The slice is valid only until Close.
func (m *Mapping) Bytes() []byte {
	if m.closed.Load() {
		return nil
	}
	return m.data
}

// Size returns the length of the mapping in bytes.
func (m *Mapping) Size() int { return m.size }

// Sync flushes dirty pages of the mapping to the backing file.
func (m *Mapping) Sync() error {
	if m.closed.Load() {
		return ErrClosed
	}
	if m.sync == nil {
		return nil
	}
	return m.sync(m.data)
}

// Close unmaps the memory. Idempotent.
func (m *Mapping) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	if m.unmap != nil && m.data != nil {
		return m.unmap(m.data)
	}
	return nil
}
