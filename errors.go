// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dagdb

import (
	"fmt"
	"sync"
)

// Error codes, stable across versions. NONE is the zero value and never
// appears in a returned error.
const (
	NONE = iota
	INVALID_DB
	DB_TOO_LARGE
	IO
	ALLOC
)

var codeName = map[int]string{
	NONE:         "NONE",
	INVALID_DB:   "INVALID_DB",
	DB_TOO_LARGE: "DB_TOO_LARGE",
	IO:           "IO",
	ALLOC:        "ALLOC",
}

// An Error is the common shape of every error this package returns. Code is
// one of the package level constants above.
type Error struct {
	Code int
	Msg  string
	Arg  interface{}
}

func (e *Error) Error() string {
	if e.Arg != nil {
		return fmt.Sprintf("%s: %s (%v)", codeName[e.Code], e.Msg, e.Arg)
	}
	return fmt.Sprintf("%s: %s", codeName[e.Code], e.Msg)
}

func newError(code int, msg string, arg interface{}) *Error {
	e := &Error{Code: code, Msg: msg, Arg: arg}
	setLastError(e)
	return e
}

// errInvalidDB reports a header/magic mismatch, an unsupported version, a
// non-regular backing file or an I/O failure encountered while loading one.
func errInvalidDB(msg string, arg interface{}) error { return newError(INVALID_DB, msg, arg) }

// errDBTooLarge reports that growing the file would exceed MaxSize.
func errDBTooLarge(msg string, arg interface{}) error { return newError(DB_TOO_LARGE, msg, arg) }

// errIO reports a read/write/mmap failure encountered outside of load.
func errIO(msg string, arg interface{}) error { return newError(IO, msg, arg) }

// errAlloc reports that the allocator could not satisfy a request.
func errAlloc(msg string, arg interface{}) error { return newError(ALLOC, msg, arg) }

var lastErrMu sync.Mutex
var lastErr *Error

func setLastError(e *Error) {
	lastErrMu.Lock()
	lastErr = e
	lastErrMu.Unlock()
}

// LastError returns the most recently constructed Error, or nil if none has
// occurred yet (or ClearLastError was called since). It is retrievable by
// any goroutine, but this package has no other concurrency guarantees - see
// the package doc.
func LastError() *Error {
	lastErrMu.Lock()
	defer lastErrMu.Unlock()
	return lastErr
}

// ClearLastError resets the process-wide last-error slot to nil.
func ClearLastError() {
	lastErrMu.Lock()
	lastErr = nil
	lastErrMu.Unlock()
}

// corrupt panics: the file structure (bitmap, free list, or a handle's type
// tag) has been found in an inconsistent state. Continuing would risk
// silently corrupting the file further, so - like the teacher's own
// "panic("internal error")" escape hatches in its allocator - we stop hard
// instead of returning an error that might be ignored.
func corrupt(msg string, arg interface{}) {
	panic(&Error{Code: IO, Msg: "corrupt database: " + msg, Arg: arg})
}
