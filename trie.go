// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// The Radix Trie: 16-way nibble-indexed index over the typed object
// layer's Element and KVPair leaves. Grounded on spec.md §4.5; there is
// no teacher analogue (lldb has no trie), so this file follows the
// allocate/unwind-on-failure discipline of lldb/falloc.go's Alloc instead.
package dagdb

type trieFrame struct {
	node Handle
	slot int
}

// trieInsert implements spec.md §4.5's Insert. It returns 1 on a fresh
// insert, 0 if leaf's key already has an entry (no mutation), and -1 (with
// any partial allocation already unwound) on allocator failure.
func (db *DB) trieInsert(root, leaf Handle) (int, error) {
	k := db.obtainKey(leaf)
	cur := root
	depth := 0
	for {
		slot := int(nibble(k, depth))
		child := db.trieChild(cur, slot)

		if child.IsNil() {
			db.setTrieChild(cur, slot, leaf)
			return 1, nil
		}

		if getType(child) == TagTrie {
			cur = child
			depth++
			continue
		}

		existingKey := db.obtainKey(child)
		if existingKey == k {
			return 0, nil
		}

		head, err := db.buildDivergingChain(k, existingKey, leaf, child, depth+1)
		if err != nil {
			return -1, err
		}
		db.setTrieChild(cur, slot, head)
		return 1, nil
	}
}

// buildDivergingChain allocates fresh Trie nodes from depth downward until
// the keys of leafA and leafB first diverge, places both leaves in that
// node's slots, and returns the chain's head. On allocator failure it
// frees everything it has allocated so far and returns the error.
func (db *DB) buildDivergingChain(keyA, keyB Key, leafA, leafB Handle, depth int) (Handle, error) {
	var nodes []Handle
	unwind := func() {
		for _, n := range nodes {
			db.deleteTrieNode(n)
		}
	}

	d := depth
	for nibble(keyA, d) == nibble(keyB, d) {
		node, err := db.createTrie()
		if err != nil {
			unwind()
			return 0, err
		}
		nodes = append(nodes, node)
		d++
	}

	leafNode, err := db.createTrie()
	if err != nil {
		unwind()
		return 0, err
	}
	nodes = append(nodes, leafNode)

	db.setTrieChild(leafNode, int(nibble(keyA, d)), leafA)
	db.setTrieChild(leafNode, int(nibble(keyB, d)), leafB)

	for i := 0; i < len(nodes)-1; i++ {
		db.setTrieChild(nodes[i], int(nibble(keyA, depth+i)), nodes[i+1])
	}
	return nodes[0], nil
}

// trieFind implements spec.md §4.5's Find: the leaf handle whose key
// exactly matches key, or the null handle.
func (db *DB) trieFind(root Handle, key Key) Handle {
	cur := root
	depth := 0
	for {
		slot := int(nibble(key, depth))
		child := db.trieChild(cur, slot)
		if child.IsNil() {
			return 0
		}
		if getType(child) == TagTrie {
			cur = child
			depth++
			continue
		}
		if db.obtainKey(child) == key {
			return child
		}
		return 0
	}
}

// trieRemove implements spec.md §4.5's Remove, including collapse: a
// parent left with exactly one leaf child and no Trie children is itself
// replaced by that leaf in its grandparent, repeating upward. The root
// node passed in is never freed.
func (db *DB) trieRemove(root Handle, key Key) (int, error) {
	var path []trieFrame
	cur := root
	depth := 0
	for {
		slot := int(nibble(key, depth))
		child := db.trieChild(cur, slot)
		if child.IsNil() {
			return 0, nil
		}
		if getType(child) == TagTrie {
			path = append(path, trieFrame{node: cur, slot: slot})
			cur = child
			depth++
			continue
		}
		if db.obtainKey(child) != key {
			return 0, nil
		}

		if err := db.deleteLeaf(child); err != nil {
			return 0, err
		}
		db.setTrieChild(cur, slot, 0)
		if err := db.collapse(cur, path); err != nil {
			return 0, err
		}
		return 1, nil
	}
}

// collapse walks from node up through path, lifting a lone surviving leaf
// into its grandparent's slot and freeing the now-redundant node, until it
// reaches a node with more than one surviving child or the root (path
// exhausted).
func (db *DB) collapse(node Handle, path []trieFrame) error {
	for len(path) > 0 {
		leaf, ok := db.soleLeafChild(node)
		if !ok {
			return nil
		}
		parent := path[len(path)-1]
		if err := db.deleteTrieNode(node); err != nil {
			return err
		}
		db.setTrieChild(parent.node, parent.slot, leaf)
		node = parent.node
		path = path[:len(path)-1]
	}
	return nil
}

// soleLeafChild reports whether node has exactly one non-null child, and
// that child is a leaf (not a Trie).
func (db *DB) soleLeafChild(node Handle) (leaf Handle, ok bool) {
	count := 0
	for slot := 0; slot < 16; slot++ {
		child := db.trieChild(node, slot)
		if child.IsNil() {
			continue
		}
		if getType(child) == TagTrie {
			return 0, false
		}
		count++
		leaf = child
	}
	return leaf, count == 1
}

// trieDelete implements spec.md §4.5's Delete: postorder teardown of
// every child, then the node itself.
func (db *DB) trieDelete(h Handle) error {
	for slot := 0; slot < 16; slot++ {
		child := db.trieChild(h, slot)
		if child.IsNil() {
			continue
		}
		if getType(child) == TagTrie {
			if err := db.trieDelete(child); err != nil {
				return err
			}
			continue
		}
		if err := db.deleteLeaf(child); err != nil {
			return err
		}
	}
	return db.deleteTrieNode(h)
}
