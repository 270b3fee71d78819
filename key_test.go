// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dagdb

import "testing"

func TestNibbleK0(t *testing.T) {
	k := Key{
		0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef, 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x37, 0xe7, 0x52, 0x0f,
	}

	want := []byte{
		1, 0, 3, 2, 5, 4, 7, 6, 9, 8, 11, 10, 13, 12, 15, 14,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		7, 3, 7, 14, 2, 5, 15, 0,
	}

	for d, w := range want {
		if g := nibble(k, d); g != w {
			t.Fatalf("nibble(K0, %d) = %d, want %d", d, g, w)
		}
	}
}

func TestKeyIsZero(t *testing.T) {
	var z Key
	if !z.IsZero() {
		t.Fatal("zero Key reported non-zero")
	}
	z[19] = 1
	if z.IsZero() {
		t.Fatal("non-zero Key reported zero")
	}
}
