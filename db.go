// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dagdb implements a single-file, memory-mapped, content-addressed
// structured database: a slab allocator backing a 16-way radix trie keyed
// by 160-bit digests, in the tradition of lldb's Allocator/Filer split
// (see DESIGN.md for the full grounding ledger).
package dagdb

import (
	"encoding/binary"
	"sync"
)

// DB is a single open database. Its zero value is not usable; construct one
// with Open. Mirroring dbm.DB's "bkl" (big kernel lock), a DB serializes all
// mutating operations behind one mutex - see spec.md §5's single-writer
// concurrency model.
type DB struct {
	mu   sync.Mutex
	path string

	m  *mapping
	h  *header
	ft *freeTable

	hash Hasher
}

// Open opens or creates the database file at path. A nil opts is equivalent
// to DefaultOptions().
func Open(path string, opts *Options) (*DB, error) {
	opts = opts.orDefault()

	m, h, err := loadMapping(path, opts.Lock)
	if err != nil {
		return nil, err
	}

	db := &DB{
		path: path,
		m:    m,
		h:    h,
		ft:   newFreeTable(),
		hash: sha1Hasher{},
	}

	if h.rootHandle.IsNil() {
		db.h.rootHandle = makeHandle(rootTrieOffset(), TagTrie)
		db.writeRootHandle()
		if err := db.initRootTrie(); err != nil {
			db.m.unload()
			return nil, err
		}
		// A new file gets its first slab up front, filed as one free chunk.
		if err := db.growOneSlab(); err != nil {
			db.m.unload()
			return nil, err
		}
	}

	return db, nil
}

// Close flushes and releases the backing file. It is idempotent: a second
// call returns nil without effect beyond the first.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.m == nil {
		return nil
	}
	err := db.m.unload()
	db.m = nil
	return err
}

// writeHeaderSize persists db.h.size into the mapping's own byte image:
// the header lives inside the single mmap like everything else, so the
// struct field and the on-disk bytes must be kept in lockstep by hand.
func (db *DB) writeHeaderSize() {
	binary.NativeEndian.PutUint64(db.m.data[32:40], db.h.size)
}

func (db *DB) writeRootHandle() {
	binary.NativeEndian.PutUint64(db.m.data[40:48], uint64(db.h.rootHandle))
}

// initRootTrie zero-fills the fixed root trie region. A Trie object whose
// 16 children handles are all nil is exactly the empty trie, and Truncate
// already zero-filled new file regions, so this is here for clarity and
// for the case of a root trie slot inherited from a future on-disk layout
// change rather than for any work it still has to do today.
func (db *DB) initRootTrie() error {
	off := rootTrieOffset()
	region := db.m.data[off : off+rootTrieSize]
	clear(region)
	region[0] = byte(TagTrie)
	return nil
}
