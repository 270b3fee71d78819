// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dagdb

import (
	"os"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.dagdb")
	db, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	return db, path
}

func TestOpenCreatesRootTrie(t *testing.T) {
	db, _ := openTestDB(t)
	defer db.Close()

	if db.h.rootHandle.IsNil() {
		t.Fatal("root trie handle is nil after Open")
	}
	if db.h.rootHandle.Tag() != TagTrie {
		t.Fatalf("root handle tag = %v, want Trie", db.h.rootHandle.Tag())
	}
}

func TestReopenPreservesContent(t *testing.T) {
	db, path := openTestDB(t)

	h1, err := db.WriteData([]byte("persist me"))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	db2, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer db2.Close()

	h2 := db2.FindData([]byte("persist me"))
	if h2.IsNil() {
		t.Fatal("data lost across reopen")
	}
	if h2.Offset() != h1.Offset() {
		t.Fatalf("reopened handle = %v, want %v", h2, h1)
	}
}

func TestOpenRejectsDirectory(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "is-a-dir")
	if err := os.Mkdir(target, 0755); err != nil {
		t.Fatal(err)
	}

	_, err := Open(target, nil)
	if err == nil {
		t.Fatal("Open succeeded against a directory")
	}
	dbErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if dbErr.Code != INVALID_DB {
		t.Fatalf("error code = %v, want INVALID_DB", dbErr.Code)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	db, _ := openTestDB(t)
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
}
