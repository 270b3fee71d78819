// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The Slab Allocator: partitions the mapped region into fixed-size slabs
// and, inside each, allocates variable-size chunks tracked by a per-slab
// bitmap. Grounded on lldb/falloc.go's Allocator.alloc/.free/.free2
// control flow; see DESIGN.md.
package dagdb

import "github.com/cznic/mathutil"

// minChunkBytes is sizeof(FreeMemoryChunk): two 8-byte link fields.
const minChunkBytes = 2 * Granule

// roundUp implements spec.md's dagdb_round_up: the smallest multiple of
// Granule that is at least max(n, minChunkBytes).
func roundUp(n int64) int64 {
	if n < minChunkBytes {
		n = minChunkBytes
	}
	return (n + Granule - 1) / Granule * Granule
}

func slabCount(totalSize int64) int64 {
	return (totalSize - firstSlabOffset()) / SlabSize
}

func slabBase(k int64) int64 {
	return firstSlabOffset() + k*SlabSize
}

func slabDataOffset(k int64) int64 {
	return slabBase(k) + slabBitmapBytes()
}

// locate returns which slab off falls in and its granule index within that
// slab's data area.
func locate(off int64) (slabIdx int64, granule int64) {
	rel := off - firstSlabOffset()
	slabIdx = rel / SlabSize
	within := rel - slabIdx*SlabSize
	granule = (within - slabBitmapBytes()) / Granule
	return
}

func (db *DB) bitPos(slabIdx, granule int64) (byteOff int64, mask byte) {
	byteOff = slabBase(slabIdx) + granule/8
	mask = 1 << uint(granule%8)
	return
}

func (db *DB) bitSet(slabIdx, granule int64, allocated bool) {
	off, mask := db.bitPos(slabIdx, granule)
	if allocated {
		db.m.data[off] |= mask
	} else {
		db.m.data[off] &^= mask
	}
}

func (db *DB) bitGet(slabIdx, granule int64) bool {
	off, mask := db.bitPos(slabIdx, granule)
	return db.m.data[off]&mask != 0
}

func (db *DB) markRange(off, atoms int64, allocated bool) {
	slabIdx, g := locate(off)
	for i := int64(0); i < atoms; i++ {
		db.bitSet(slabIdx, g+i, allocated)
	}
}

// freeExtentForward returns the number of contiguous free granules starting
// at (slabIdx, granule), bounded by the slab's data area.
func (db *DB) freeExtentForward(slabIdx, granule int64) int64 {
	max := slabDataGranules()
	var n int64
	for granule+n < max && !db.bitGet(slabIdx, granule+n) {
		n++
	}
	return n
}

// freeExtentBackward returns the number of contiguous free granules ending
// just before (slabIdx, granule).
func (db *DB) freeExtentBackward(slabIdx, granule int64) int64 {
	var n int64
	for granule-n-1 >= 0 && !db.bitGet(slabIdx, granule-n-1) {
		n++
	}
	return n
}

// malloc allocates nbytes of payload space (spec.md §4.2's Allocation
// policy) and returns its offset.
func (db *DB) malloc(nbytes int64) (int64, error) {
	atoms := roundUp(nbytes) / Granule
	if atoms > slabDataGranules() {
		// Structurally unsatisfiable: no single chunk can ever span more
		// than one slab's data area, regardless of how many slabs are
		// grown. If the request is so large that even a dedicated slab
		// for it alone would push the database past MaxSize, report that
		// specifically (spec.md §8 scenario 2); otherwise it is simply
		// too big for one chunk.
		if nbytes > MaxSize-firstSlabOffset() {
			return 0, errDBTooLarge("request exceeds maximum database size", nbytes)
		}
		return 0, errAlloc("request exceeds single-chunk ceiling", nbytes)
	}

	class := db.ft.allocChunkID(nbytes)
	if class <= db.ft.maxClass {
		for c := class; c <= db.ft.maxClass; c++ {
			off, ok := db.listPopFront(c)
			if !ok {
				continue
			}
			return db.finishAlloc(off, atoms)
		}
	}

	if err := db.growOneSlab(); err != nil {
		return 0, err
	}

	// Retry once: growOneSlab filed the fresh slab's data area as one
	// maximal free chunk at the head of its class, and that chunk is big
	// enough for any request that passed the ceiling check above.
	if off, ok := db.listPopFront(db.ft.freeChunkID(slabDataGranules())); ok {
		return db.finishAlloc(off, atoms)
	}
	return 0, errAlloc("allocator could not satisfy request after growth", nbytes)
}

// finishAlloc splits the residual off a popped chunk (if large enough to
// be worth keeping) and marks the returned span allocated.
func (db *DB) finishAlloc(off, atoms int64) (int64, error) {
	slabIdx, g := locate(off)
	actual := db.freeExtentForward(slabIdx, g)
	residual := mathutil.MaxInt64(actual-atoms, 0)

	if residual >= minChunkBytes/Granule {
		tailOff := off + atoms*Granule
		db.listInsert(db.ft.freeChunkID(residual), tailOff)
	} else {
		atoms = actual // small residual stays part of the allocation
	}

	db.markRange(off, atoms, true)
	return off, nil
}

// free releases the nbytes-sized chunk at off (spec.md §4.2's Free),
// coalescing with same-slab neighbours before filing the result.
func (db *DB) free(off, nbytes int64) error {
	atoms := roundUp(nbytes) / Granule
	db.markRange(off, atoms, false)

	slabIdx, g := locate(off)

	newOff, newAtoms := off, atoms

	if lrun := db.freeExtentBackward(slabIdx, g); lrun > 0 {
		loff := off - lrun*Granule
		db.listRemove(loff)
		newOff = loff
		newAtoms += lrun
	}

	if rrun := db.freeExtentForward(slabIdx, g+atoms); rrun > 0 {
		roff := off + atoms*Granule
		db.listRemove(roff)
		newAtoms += rrun
	}

	db.listInsert(db.ft.freeChunkID(newAtoms), newOff)
	return nil
}

// growOneSlab extends the file by one slab, zeroes its bitmap, and files
// its whole data area as a single free chunk.
func (db *DB) growOneSlab() error {
	newSize, err := db.m.grow(SlabSize)
	if err != nil {
		return err
	}

	db.h.size = uint64(newSize)
	db.writeHeaderSize()

	k := slabCount(newSize) - 1
	// Bitmap prefix starts zeroed because Truncate/mmap of new space
	// reads as zero bytes; the data area is therefore entirely free.
	db.listInsert(db.ft.freeChunkID(slabDataGranules()), slabDataOffset(k))
	return nil
}
