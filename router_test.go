// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dagdb

import (
	"bytes"
	"testing"
)

func TestDataRoundTrip(t *testing.T) {
	db, _ := openTestDB(t)
	defer db.Close()

	want := []byte("This is a test")
	h, err := db.createData(want)
	if err != nil {
		t.Fatal(err)
	}
	if db.dataLength(h) != uint64(len(want)) {
		t.Fatalf("dataLength = %d, want %d", db.dataLength(h), len(want))
	}
	if !bytes.Equal(db.dataRead(h), want) {
		t.Fatalf("dataRead = %q, want %q", db.dataRead(h), want)
	}
}

func TestWriteDataDedups(t *testing.T) {
	db, _ := openTestDB(t)
	defer db.Close()

	data := []byte("This is a test")

	h1, err := db.WriteData(data)
	if err != nil {
		t.Fatal(err)
	}
	size0 := int64(db.h.size)

	h2, err := db.WriteData(data)
	if err != nil {
		t.Fatal(err)
	}

	if h1 != h2 {
		t.Fatalf("WriteData twice returned different handles: %v != %v", h1, h2)
	}
	if int64(db.h.size) != size0 {
		t.Fatalf("second WriteData grew the file: %d != %d", db.h.size, size0)
	}

	if g := db.FindData(data); g != h1 {
		t.Fatalf("FindData = %v, want %v", g, h1)
	}
	if g := db.FindData([]byte("never written")); !g.IsNil() {
		t.Fatalf("FindData on unwritten data = %v, want nil", g)
	}
}

func TestWriteRecordRoundTrip(t *testing.T) {
	db, _ := openTestDB(t)
	defer db.Close()

	fieldH, err := db.WriteData([]byte("name"))
	if err != nil {
		t.Fatal(err)
	}
	valueH, err := db.WriteData([]byte("dagdb"))
	if err != nil {
		t.Fatal(err)
	}

	entries := []RecordEntry{{Field: fieldH, Value: valueH}}

	r1, err := db.WriteRecord(entries)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := db.WriteRecord(entries)
	if err != nil {
		t.Fatal(err)
	}
	if r1 != r2 {
		t.Fatalf("WriteRecord twice returned different handles: %v != %v", r1, r2)
	}

	if g := db.FindRecord(entries); g != r1 {
		t.Fatalf("FindRecord = %v, want %v", g, r1)
	}

	recordTrie := db.elementData(r1)
	if recordTrie.Tag() != TagTrie {
		t.Fatalf("record Element pointer1 tag = %v, want Trie", recordTrie.Tag())
	}

	fieldKey := db.elementKey(fieldH)
	leaf := db.trieFind(recordTrie, fieldKey)
	if leaf.IsNil() {
		t.Fatal("record's internal trie has no entry for the written field key")
	}
	if leaf.Tag() != TagKVPair {
		t.Fatalf("record leaf tag = %v, want KVPair", leaf.Tag())
	}
	if db.kvPairValue(leaf) != valueH {
		t.Fatalf("KVPair value = %v, want %v", db.kvPairValue(leaf), valueH)
	}
}

func TestWriteRecordOrderIndependent(t *testing.T) {
	db, _ := openTestDB(t)
	defer db.Close()

	a, err := db.WriteData([]byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := db.WriteData([]byte("b"))
	if err != nil {
		t.Fatal(err)
	}
	c, err := db.WriteData([]byte("c"))
	if err != nil {
		t.Fatal(err)
	}
	d, err := db.WriteData([]byte("d"))
	if err != nil {
		t.Fatal(err)
	}

	r1, err := db.WriteRecord([]RecordEntry{{Field: a, Value: b}, {Field: c, Value: d}})
	if err != nil {
		t.Fatal(err)
	}
	r2, err := db.WriteRecord([]RecordEntry{{Field: c, Value: d}, {Field: a, Value: b}})
	if err != nil {
		t.Fatal(err)
	}
	if r1 != r2 {
		t.Fatalf("records with reordered entries produced different handles: %v != %v", r1, r2)
	}
}
