// Copyright 2013 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dagdb

// Options configures Open. A nil Options is equivalent to DefaultOptions(),
// mirroring dbm/options.go's zero-value-means-default convention.
type Options struct {
	// Lock requests an exclusive advisory lock (flock(2)) on the backing
	// file. A failure to acquire it is not fatal, per spec.md §5; set this
	// to false to skip even attempting it (e.g. read replicas sharing one
	// file under external coordination).
	Lock bool
}

// DefaultOptions returns the Options Open uses when passed nil.
func DefaultOptions() *Options {
	return &Options{Lock: true}
}

func (o *Options) orDefault() *Options {
	if o == nil {
		return DefaultOptions()
	}
	return o
}
