// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The Typed Object Layer: on-disk layout, creation and teardown for the
// four object shapes (Data, Element, KVPair, Trie). Every create routine
// computes the required payload size, calls through to the allocator,
// stamps the 1-byte type discriminator, and ORs the chunk offset with the
// shape's tag to produce the returned Handle - mirroring how
// lldb/falloc.go's Alloc writes a tag byte ahead of every block it hands
// out (see DESIGN.md).
package dagdb

import "encoding/binary"

// Every object's payload begins with a 1-byte type discriminator that
// mirrors its Handle's tag bits (spec.md's invariant 1).
const discriminatorSize = 1

// --- Data: { length: u64, bytes[length] } ---

func dataPayloadSize(n int) int64 {
	return discriminatorSize + 8 + int64(n)
}

// createData allocates and writes a Data object holding a copy of bytes.
func (db *DB) createData(bytes []byte) (Handle, error) {
	size := dataPayloadSize(len(bytes))
	off, err := db.malloc(size)
	if err != nil {
		return 0, err
	}
	b := db.m.data[off : off+size]
	b[0] = byte(TagData)
	binary.NativeEndian.PutUint64(b[1:9], uint64(len(bytes)))
	copy(b[9:], bytes)
	return makeHandle(off, TagData), nil
}

// dataLength returns the stored length of the Data object at h.
func (db *DB) dataLength(h Handle) uint64 {
	off := h.Offset()
	return binary.NativeEndian.Uint64(db.m.data[off+1 : off+9])
}

// dataRead returns the byte slice stored in the Data object at h. The
// returned slice aliases the mapping; callers must not retain it across
// an operation that might grow the file.
func (db *DB) dataRead(h Handle) []byte {
	off := h.Offset()
	n := db.dataLength(h)
	start := off + 9
	return db.m.data[start : start+int64(n)]
}

func (db *DB) deleteData(h Handle) error {
	return db.free(h.Offset(), dataPayloadSize(int(db.dataLength(h))))
}

// --- Element: { key[20], pointer1: handle, pointer2: handle } ---

const elementPayloadSize = discriminatorSize + KeyWidth + 8 + 8

// createElement allocates an Element. pointer1 is a Data or Trie handle
// (spec.md §3); pointer2 is this Element's back-reference Trie, always a
// Trie handle, and is typically a freshly created empty Trie.
func (db *DB) createElement(key Key, pointer1, pointer2 Handle) (Handle, error) {
	off, err := db.malloc(elementPayloadSize)
	if err != nil {
		return 0, err
	}
	b := db.m.data[off : off+elementPayloadSize]
	b[0] = byte(TagElement)
	copy(b[1:1+KeyWidth], key[:])
	p := 1 + KeyWidth
	binary.NativeEndian.PutUint64(b[p:p+8], uint64(pointer1))
	binary.NativeEndian.PutUint64(b[p+8:p+16], uint64(pointer2))
	return makeHandle(off, TagElement), nil
}

func (db *DB) elementKey(h Handle) Key {
	off := h.Offset()
	var k Key
	copy(k[:], db.m.data[off+1:off+1+KeyWidth])
	return k
}

// elementData returns pointer1: the Data or record-Trie handle.
func (db *DB) elementData(h Handle) Handle {
	off := h.Offset() + 1 + KeyWidth
	return Handle(binary.NativeEndian.Uint64(db.m.data[off : off+8]))
}

// elementBackref returns pointer2: this Element's back-reference Trie.
func (db *DB) elementBackref(h Handle) Handle {
	off := h.Offset() + 1 + KeyWidth + 8
	return Handle(binary.NativeEndian.Uint64(db.m.data[off : off+8]))
}

func (db *DB) deleteElement(h Handle) error {
	return db.free(h.Offset(), elementPayloadSize)
}

// --- KVPair: { key_handle: handle, value: handle } ---

const kvPairPayloadSize = discriminatorSize + 8 + 8

// createKVPair allocates a KVPair. keyHandle must reference an Element;
// obtainKey follows it to recover the 20-byte trie key.
func (db *DB) createKVPair(keyHandle, value Handle) (Handle, error) {
	off, err := db.malloc(kvPairPayloadSize)
	if err != nil {
		return 0, err
	}
	b := db.m.data[off : off+kvPairPayloadSize]
	b[0] = byte(TagKVPair)
	binary.NativeEndian.PutUint64(b[1:9], uint64(keyHandle))
	binary.NativeEndian.PutUint64(b[9:17], uint64(value))
	return makeHandle(off, TagKVPair), nil
}

func (db *DB) kvPairKeyHandle(h Handle) Handle {
	off := h.Offset()
	return Handle(binary.NativeEndian.Uint64(db.m.data[off+1 : off+9]))
}

func (db *DB) kvPairValue(h Handle) Handle {
	off := h.Offset()
	return Handle(binary.NativeEndian.Uint64(db.m.data[off+9 : off+17]))
}

// deleteKVPair frees only the pair, never the Element referenced by its
// key_handle (spec.md §4.4).
func (db *DB) deleteKVPair(h Handle) error {
	return db.free(h.Offset(), kvPairPayloadSize)
}

// --- Trie: { children[16]: handle } ---

const triePayloadSize = discriminatorSize + 16*8

// createTrie allocates a Trie with all 16 child slots null.
func (db *DB) createTrie() (Handle, error) {
	off, err := db.malloc(triePayloadSize)
	if err != nil {
		return 0, err
	}
	b := db.m.data[off : off+triePayloadSize]
	clear(b)
	b[0] = byte(TagTrie)
	return makeHandle(off, TagTrie), nil
}

func trieChildOffset(off int64, slot int) int64 {
	return off + discriminatorSize + int64(slot)*8
}

func (db *DB) trieChild(h Handle, slot int) Handle {
	o := trieChildOffset(h.Offset(), slot)
	return Handle(binary.NativeEndian.Uint64(db.m.data[o : o+8]))
}

func (db *DB) setTrieChild(h Handle, slot int, child Handle) {
	o := trieChildOffset(h.Offset(), slot)
	binary.NativeEndian.PutUint64(db.m.data[o:o+8], uint64(child))
}

// deleteTrieNode frees a single Trie chunk without touching its children;
// callers (trieDelete) must have already disposed of every child slot.
func (db *DB) deleteTrieNode(h Handle) error {
	return db.free(h.Offset(), triePayloadSize)
}

// getType reads a handle's low 2 bits; it matches the discriminator byte
// stamped at the handle's payload for any handle this layer created.
func getType(h Handle) Handle { return h.Tag() }

// obtainKey implements spec.md §3's uniform key-extraction rule: for an
// Element the key is stored inline; for a KVPair it is the key of the
// Element its key_handle refers to.
func (db *DB) obtainKey(leaf Handle) Key {
	switch getType(leaf) {
	case TagElement:
		return db.elementKey(leaf)
	case TagKVPair:
		return db.elementKey(db.kvPairKeyHandle(leaf))
	default:
		corrupt("obtainKey: handle is not a valid leaf", leaf)
		panic("unreachable")
	}
}

// deleteLeaf frees an Element or KVPair leaf per its own shape.
func (db *DB) deleteLeaf(leaf Handle) error {
	switch getType(leaf) {
	case TagElement:
		return db.deleteElement(leaf)
	case TagKVPair:
		return db.deleteKVPair(leaf)
	default:
		corrupt("deleteLeaf: handle is not a valid leaf", leaf)
		panic("unreachable")
	}
}
