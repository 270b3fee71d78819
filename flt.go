// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The Free-Chunk Table: segregated free-lists of released chunks keyed by
// size class, each a cyclic doubly-linked list whose sentinel lives in the
// header. Grounded on lldb/flt.go's fltSlot/get/put tables (see DESIGN.md);
// unlike the teacher, whose sentinel is "head == 0 means empty", this
// table's sentinels are real cycle members (spec.md's "starting at H and
// following next pointers returns to H" invariant), which is why empty
// classes are represented as self-loops rather than a zero head.
package dagdb

import "encoding/binary"

// freeTable precomputes, for every possible chunk size in granules, which
// free-list class to search from when allocating (allocClass, rounding up)
// and which class to file a freed chunk of that exact size under
// (freeClass, rounding down) - the same get/put split as lldb/flt.go.
type freeTable struct {
	maxClass   int
	maxAtoms   int64
	allocClass []int16
	freeClass  []int16
}

func newFreeTable() *freeTable {
	max := maxFreeClass()
	maxAtoms := slabDataGranules()
	ft := &freeTable{
		maxClass:   max,
		maxAtoms:   maxAtoms,
		allocClass: make([]int16, maxAtoms+1),
		freeClass:  make([]int16, maxAtoms+1),
	}

	// allocClass: ceil-log2 class ladder. Class cls covers request sizes
	// in (2^(cls-1), 2^cls].
	prev := int64(0)
	for cls := 1; cls <= max; cls++ {
		threshold := int64(1) << uint(cls)
		for atoms := prev + 1; atoms <= threshold && atoms <= maxAtoms; atoms++ {
			ft.allocClass[atoms] = int16(cls)
		}
		prev = threshold
	}
	for atoms := prev + 1; atoms <= maxAtoms; atoms++ {
		ft.allocClass[atoms] = int16(max)
	}

	// freeClass: floor-log2 class ladder. Class cls covers actual sizes
	// in [2^cls, 2^(cls+1)-1], the last class absorbing everything above.
	// Sizes of 0 and 1 granule lie below every class (no free chunk is
	// smaller than minChunkBytes) and keep the zero value.
	for cls := 1; cls <= max; cls++ {
		lo := int64(1) << uint(cls)
		hi := (int64(1) << uint(cls+1)) - 1
		if cls == max {
			hi = maxAtoms
		}
		for atoms := lo; atoms <= hi && atoms <= maxAtoms; atoms++ {
			ft.freeClass[atoms] = int16(cls)
		}
	}
	return ft
}

// allocChunkID implements spec.md's alloc_chunk_id: the free-list class to
// start searching from for a request of size bytes.
func (ft *freeTable) allocChunkID(size int64) int {
	atoms := roundUp(size) / Granule
	if atoms > ft.maxAtoms {
		return ft.maxClass + 1 // unsatisfiable by any class; caller must reject
	}
	return int(ft.allocClass[atoms])
}

// freeChunkID implements spec.md's free_chunk_id: the free-list class a
// chunk of exactly atoms granules is filed under.
func (ft *freeTable) freeChunkID(atoms int64) int {
	if atoms > ft.maxAtoms {
		atoms = ft.maxAtoms
	}
	return int(ft.freeClass[atoms])
}

// --- cyclic doubly-linked free lists, stored directly in the mapping ---
//
// Every class's sentinel and every free chunk share the same 16-byte
// layout: an 8-byte prev offset followed by an 8-byte next offset, both
// addressed uniformly whether they name a sentinel (inside the header) or
// a real chunk (inside a slab's data area) - the whole file is one mmap,
// so both live in the same byte slice.

func sentinelOffset(class int) int64 {
	return int64(headerSentinelsOffset) + int64(class-1)*16
}

func (db *DB) linkPrev(ref int64) int64 {
	return int64(binary.NativeEndian.Uint64(db.m.data[ref : ref+8]))
}

func (db *DB) linkNext(ref int64) int64 {
	return int64(binary.NativeEndian.Uint64(db.m.data[ref+8 : ref+16]))
}

func (db *DB) setLinkPrev(ref, v int64) {
	binary.NativeEndian.PutUint64(db.m.data[ref:ref+8], uint64(v))
}

func (db *DB) setLinkNext(ref, v int64) {
	binary.NativeEndian.PutUint64(db.m.data[ref+8:ref+16], uint64(v))
}

// listEmpty reports whether class's free list holds no chunks.
func (db *DB) listEmpty(class int) bool {
	s := sentinelOffset(class)
	return db.linkNext(s) == s
}

// listInsert files chunk c (its offset) at the head of class's free list.
func (db *DB) listInsert(class int, c int64) {
	s := sentinelOffset(class)
	first := db.linkNext(s)
	db.setLinkNext(s, c)
	db.setLinkPrev(c, s)
	db.setLinkNext(c, first)
	db.setLinkPrev(first, c)
}

// listRemove unlinks chunk c from whatever free list currently holds it.
func (db *DB) listRemove(c int64) {
	p := db.linkPrev(c)
	n := db.linkNext(c)
	db.setLinkNext(p, n)
	db.setLinkPrev(n, p)
}

// listPopFront removes and returns the head chunk of class's free list, if
// any.
func (db *DB) listPopFront(class int) (off int64, ok bool) {
	s := sentinelOffset(class)
	c := db.linkNext(s)
	if c == s {
		return 0, false
	}
	db.listRemove(c)
	return c, true
}

// verifyFreeLists checks the invariant from spec.md §4.3 and §8.1: every
// free-list is a well-formed cycle with addresses inside
// [HeaderTotalSize, size).
func (db *DB) verifyFreeLists() error {
	lo := headerTotalSize()
	hi := int64(db.h.size)
	for class := 1; class <= db.ft.maxClass; class++ {
		s := sentinelOffset(class)
		for prev, next := s, db.linkNext(s); ; prev, next = next, db.linkNext(next) {
			if next == s {
				break
			}
			if next < lo || next >= hi {
				return errIO("free chunk address out of range", next)
			}
			if db.linkPrev(next) != prev {
				return errIO("free list chaining broken", next)
			}
		}
	}
	return nil
}
