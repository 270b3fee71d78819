// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dagdb

import (
	"encoding/binary"

	"github.com/cznic/mathutil"
)

// Fixed, build-time layout constants. Granule is S from spec.md §3: the
// allocation quantum. This build uses the 64-bit layout (S == 8); the
// 32-bit layout (S == 4) is not implemented, matching the teacher's own
// single fixed atom size (lldb's atom is always 16 bytes).
const (
	Granule  = 8
	KeyWidth = 20 // 160 bits

	// SlabSize is the fixed size of one slab: a bitmap prefix plus a data
	// area, per spec.md §4.2.
	SlabSize = 1 << 20 // 1 MiB

	// MaxSize caps the total mapped file size, per spec.md §4.1.
	MaxSize = 1 << 40 // 1 TiB

	FormatVersion = 1
)

const (
	endianLE = 1
	endianBE = 2
)

var magicPrefix = [6]byte{'D', 'A', 'G', 'D', 'B', 0}

func hostEndianMarker() byte {
	if binary.NativeEndian.Uint16([]byte{1, 0}) == 1 {
		return endianLE
	}
	return endianBE
}

// slabBitmapBytes returns the size, in bytes, of one slab's bitmap prefix:
// one bit per granule of the slab's data area, rounded up to a whole
// granule so the data area that follows starts granule-aligned and every
// payload offset leaves a Handle's two tag bits clear.
func slabBitmapBytes() int64 {
	return roundUpGranule(SlabSize / (1 + 8*Granule))
}

// slabDataGranules returns the number of allocation granules available in
// one slab's data area: as many as fit in the space after the bitmap
// prefix, and never more than the bitmap has bits for, so every granule
// the allocator hands out has a bit of its own.
func slabDataGranules() int64 {
	bm := slabBitmapBytes()
	bySpace := (SlabSize - bm) / Granule
	byBitmap := bm * 8
	return mathutil.MinInt64(bySpace, byBitmap)
}

// maxFreeClass is the number of segregated free-list classes: classes are
// indexed 1..maxFreeClass, class i holding chunks of >= 2^i granules, with
// 2^maxFreeClass >= the number of granules in a slab's data area (spec.md's
// "values larger than the allocator's single-chunk ceiling" are out of
// scope, so one slab's data area is the largest possible chunk).
func maxFreeClass() int {
	g := slabDataGranules()
	k := 1
	for (int64(1) << uint(k)) < g {
		k++
	}
	return k
}

// headerFixedSize is the size, in bytes, of the header's fixed fields
// (everything except the free-chunk-table sentinels).
const headerFixedSize = 56

// headerSentinelsOffset is the byte offset of the first free-chunk-table
// sentinel within the header.
const headerSentinelsOffset = headerFixedSize

func roundUpGranule(n int64) int64 {
	return (n + Granule - 1) / Granule * Granule
}

// headerTotalSize is the full, granule-rounded size of the header,
// including its embedded free-list sentinels.
func headerTotalSize() int64 {
	return roundUpGranule(int64(headerSentinelsOffset) + int64(maxFreeClass())*16)
}

// rootTrieSize is the fixed, granule-rounded size of a Trie object's
// on-disk payload (1-byte discriminator + 16 children handles).
const rootTrieSize = 136 // roundUpGranule(1 + 16*8) with Granule == 8

// rootTrieOffset is the fixed, header-adjacent offset of the root trie,
// per spec.md §4.6 ("a single, fixed-offset Root Trie").
func rootTrieOffset() int64 {
	return headerTotalSize()
}

// firstSlabOffset is the byte offset where the first slab begins.
func firstSlabOffset() int64 {
	return rootTrieOffset() + rootTrieSize
}

// header mirrors the on-disk layout of spec.md §6 exactly, field for
// field, plus the embedded free-chunk-table sentinels.
type header struct {
	magic      [8]byte
	version    uint32
	granule    uint32
	keyWidth   uint32
	_          uint32 // padding, keeps slabSize 8-byte aligned
	slabSize   uint64
	size       uint64
	rootHandle Handle
	numClasses uint32
	_          uint32 // padding

	// sentinels[i] is the (prev, next) pair for free-list class i+1.
	// A class with no free chunks has both fields equal to its own
	// sentinel offset (a one-node cycle), per spec.md's "Free list
	// placement" design note.
	sentinels []sentinel
}

type sentinel struct {
	prev, next int64
}

func newHeader() *header {
	h := &header{
		version:    FormatVersion,
		granule:    Granule,
		keyWidth:   KeyWidth,
		slabSize:   SlabSize,
		numClasses: uint32(maxFreeClass()),
	}
	copy(h.magic[:6], magicPrefix[:])
	h.magic[6] = hostEndianMarker()
	h.sentinels = make([]sentinel, h.numClasses)
	for i := range h.sentinels {
		off := int64(headerSentinelsOffset) + int64(i)*16
		h.sentinels[i] = sentinel{prev: off, next: off}
	}
	return h
}

// marshal writes h into b, which must be at least headerTotalSize() bytes.
func (h *header) marshal(b []byte) {
	copy(b[0:8], h.magic[:])
	binary.NativeEndian.PutUint32(b[8:12], h.version)
	binary.NativeEndian.PutUint32(b[12:16], h.granule)
	binary.NativeEndian.PutUint32(b[16:20], h.keyWidth)
	binary.NativeEndian.PutUint64(b[24:32], h.slabSize)
	binary.NativeEndian.PutUint64(b[32:40], h.size)
	binary.NativeEndian.PutUint64(b[40:48], uint64(h.rootHandle))
	binary.NativeEndian.PutUint32(b[48:52], h.numClasses)
	for i, s := range h.sentinels {
		off := headerSentinelsOffset + i*16
		binary.NativeEndian.PutUint64(b[off:off+8], uint64(s.prev))
		binary.NativeEndian.PutUint64(b[off+8:off+16], uint64(s.next))
	}
}

// unmarshalHeader parses and validates the header stored in b. It fails
// with INVALID_DB on any magic/version/granule/key-width mismatch,
// including a cross-endian open.
func unmarshalHeader(b []byte) (*header, error) {
	if len(b) < headerFixedSize {
		return nil, errInvalidDB("file too small for header", len(b))
	}

	h := &header{}
	copy(h.magic[:], b[0:8])
	if h.magic[0] != magicPrefix[0] || h.magic[1] != magicPrefix[1] || h.magic[2] != magicPrefix[2] ||
		h.magic[3] != magicPrefix[3] || h.magic[4] != magicPrefix[4] || h.magic[5] != magicPrefix[5] {
		return nil, errInvalidDB("bad magic", h.magic)
	}

	if h.magic[6] != hostEndianMarker() {
		return nil, errInvalidDB("file was written with different byte order", h.magic[6])
	}

	h.version = binary.NativeEndian.Uint32(b[8:12])
	if h.version != FormatVersion {
		return nil, errInvalidDB("unsupported version", h.version)
	}

	h.granule = binary.NativeEndian.Uint32(b[12:16])
	if h.granule != Granule {
		return nil, errInvalidDB("granule size mismatch", h.granule)
	}

	h.keyWidth = binary.NativeEndian.Uint32(b[16:20])
	if h.keyWidth != KeyWidth {
		return nil, errInvalidDB("key width mismatch", h.keyWidth)
	}

	h.slabSize = binary.NativeEndian.Uint64(b[24:32])
	if h.slabSize != SlabSize {
		return nil, errInvalidDB("slab size mismatch", h.slabSize)
	}

	h.size = binary.NativeEndian.Uint64(b[32:40])
	h.rootHandle = Handle(binary.NativeEndian.Uint64(b[40:48]))
	h.numClasses = binary.NativeEndian.Uint32(b[48:52])
	if h.numClasses != uint32(maxFreeClass()) {
		return nil, errInvalidDB("free-list class count mismatch", h.numClasses)
	}

	want := headerTotalSize()
	if int64(len(b)) < want {
		return nil, errInvalidDB("file too small for free-chunk table", len(b))
	}

	h.sentinels = make([]sentinel, h.numClasses)
	for i := range h.sentinels {
		off := headerSentinelsOffset + i*16
		h.sentinels[i] = sentinel{
			prev: int64(binary.NativeEndian.Uint64(b[off : off+8])),
			next: int64(binary.NativeEndian.Uint64(b[off+8 : off+16])),
		}
	}
	return h, nil
}
