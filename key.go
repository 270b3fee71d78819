// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dagdb

import "encoding/hex"

// Key is a 160-bit digest: the trie's lookup key, and the identity of both
// Data and Element objects. Grounded on original_source/src/api.c's
// fixed 20-byte digests.
type Key [KeyWidth]byte

func (k Key) String() string { return hex.EncodeToString(k[:]) }

// IsZero reports whether k is the all-zero key, which never names a real
// object (see spec.md's reserved-zero-key note).
func (k Key) IsZero() bool {
	for _, b := range k {
		if b != 0 {
			return false
		}
	}
	return true
}

// nibble extracts the depth'th nibble of key, per spec.md §4.5's fixed
// traversal order: within a byte, the low nibble is visited before the
// high nibble, and bytes are visited in ascending index order. depth 0
// therefore yields the low nibble of key[0], depth 1 its high nibble,
// depth 2 the low nibble of key[1], and so on.
func nibble(key Key, depth int) byte {
	b := key[depth/2]
	if depth%2 == 0 {
		return b & 0x0f
	}
	return b >> 4
}

// maxDepth is the number of nibbles in a Key (one per 4 bits).
const maxDepth = KeyWidth * 2
