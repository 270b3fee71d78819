// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dagdb

import "testing"

func TestRoundUpProperties(t *testing.T) {
	prev := int64(0)
	for n := int64(0); n < 4096; n++ {
		r := roundUp(n)
		if r%Granule != 0 {
			t.Fatalf("roundUp(%d) = %d not a multiple of Granule", n, r)
		}
		min := int64(minChunkBytes)
		if r < n || r < min {
			t.Fatalf("roundUp(%d) = %d violates max(n, minChunkBytes)", n, r)
		}
		if r < prev {
			t.Fatalf("roundUp not monotonic at n=%d: %d < %d", n, r, prev)
		}
		prev = r
	}
}

func TestSizeClassMonotonicity(t *testing.T) {
	ft := newFreeTable()
	prevFree := ft.freeChunkID(1)
	for atoms := int64(1); atoms < ft.maxAtoms; atoms++ {
		fc := ft.freeChunkID(atoms)
		if fc < prevFree {
			t.Fatalf("freeChunkID not monotonic at atoms=%d", atoms)
		}
		prevFree = fc

		ac := ft.allocChunkID((atoms + 1) * Granule)
		if fc >= ac {
			t.Fatalf("freeChunkID(%d)=%d not < allocChunkID(%d)=%d", atoms, fc, atoms+1, ac)
		}
	}
}

func TestAllocatorRoundTrip(t *testing.T) {
	db, _ := openTestDB(t)
	defer db.Close()

	size0 := int64(db.h.size)

	off, err := db.malloc(1024)
	if err != nil {
		t.Fatal(err)
	}
	if off <= headerTotalSize() {
		t.Fatalf("malloc returned offset %d inside the header", off)
	}

	if err := db.free(off, 1024); err != nil {
		t.Fatal(err)
	}

	if int64(db.h.size) != size0 {
		t.Fatalf("size changed across malloc/free round trip: %d != %d", db.h.size, size0)
	}
	if err := db.verifyFreeLists(); err != nil {
		t.Fatal(err)
	}
}

func TestOversizeAllocationFails(t *testing.T) {
	db, _ := openTestDB(t)
	defer db.Close()

	_, err := db.malloc(MaxSize)
	if err == nil {
		t.Fatal("malloc(MaxSize) succeeded, want DB_TOO_LARGE failure")
	}
	dbErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if dbErr.Code != DB_TOO_LARGE {
		t.Fatalf("error code = %v, want DB_TOO_LARGE", dbErr.Code)
	}
}

func TestOversizeSingleChunkFails(t *testing.T) {
	db, _ := openTestDB(t)
	defer db.Close()

	// Bigger than one slab's data area can ever hold, but nowhere near
	// MaxSize: structurally unsatisfiable regardless of growth, not a
	// database-size-cap failure.
	_, err := db.malloc(slabDataGranules()*Granule + 1)
	if err == nil {
		t.Fatal("malloc beyond single-chunk ceiling succeeded, want ALLOC failure")
	}
	dbErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("error type = %T, want *Error", err)
	}
	if dbErr.Code != ALLOC {
		t.Fatalf("error code = %v, want ALLOC", dbErr.Code)
	}
}

func TestMallocGrowsOnDemand(t *testing.T) {
	db, _ := openTestDB(t)
	defer db.Close()

	// Just over half a slab's data area: the first request fits in the
	// slab Open created, the second cannot fit in what is left of it.
	half := (slabDataGranules()/2 + 1) * Granule
	size0 := int64(db.h.size)
	if _, err := db.malloc(half); err != nil {
		t.Fatal(err)
	}
	if int64(db.h.size) != size0 {
		t.Fatal("malloc grew the file although the first slab had room")
	}
	if _, err := db.malloc(half); err != nil {
		t.Fatal(err)
	}
	if int64(db.h.size) <= size0 {
		t.Fatal("malloc did not grow the file by a slab once the first slab was full")
	}
}
