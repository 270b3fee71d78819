// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dagdb

// A Handle is a 64-bit offset into the mapped database file. Its low two
// bits carry the referenced object's type tag; the remaining bits are the
// byte offset of the object's payload, which is always a multiple of the
// allocation granule and therefore never sets either of those two low
// bits itself.
//
// The zero Handle is the null handle: it refers to no object.
type Handle uint64

// Object type tags, stored in a Handle's low two bits and mirrored by the
// 1-byte type discriminator stamped at the start of every object's payload.
const (
	TagData Handle = iota
	TagTrie
	TagKVPair
	TagElement
)

const handleTagMask = Handle(3)

// Tag returns h's object type tag.
func (h Handle) Tag() Handle { return h & handleTagMask }

// Offset returns the byte offset of h's payload.
func (h Handle) Offset() int64 { return int64(h &^ handleTagMask) }

// IsNil reports whether h is the null handle.
func (h Handle) IsNil() bool { return h == 0 }

// makeHandle combines a granule-aligned payload offset and a type tag into
// a Handle. off's low two bits MUST already be zero.
func makeHandle(off int64, tag Handle) Handle {
	return Handle(off) | (tag & handleTagMask)
}

func (t Handle) String() string {
	switch t {
	case TagData:
		return "Data"
	case TagTrie:
		return "Trie"
	case TagKVPair:
		return "KVPair"
	case TagElement:
		return "Element"
	default:
		return "Handle"
	}
}
