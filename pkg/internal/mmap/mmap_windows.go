//go:build windows

package mmap

import (
	"os"

	"golang.org/x/sys/windows"
)

func osMap(f *os.File, size int) (data []byte, unmap func([]byte) error, sync func([]byte) error, err error) {
	h, err := windows.CreateFileMapping(windows.Handle(f.Fd()), nil, windows.PAGE_READWRITE, 0, uint32(size), nil)
	if err != nil {
		return nil, nil, nil, err
	}
	defer windows.CloseHandle(h)

	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, uintptr(size))
	if err != nil {
		return nil, nil, nil, err
	}

	data = unsafeSlice(addr, size)
	unmapFn := func([]byte) error {
		return windows.UnmapViewOfFile(addr)
	}
	syncFn := func(b []byte) error {
		return windows.FlushViewOfFile(addr, uintptr(len(b)))
	}
	return data, unmapFn, syncFn, nil
}
