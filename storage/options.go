package storage

// Options configures a Store. Zero-value fields are filled in by
// SetDefaults at Open/Create time.
type Options struct {
	// MaxLogLen bounds, in bytes, how large the append-only body log is
	// allowed to grow before a caller should rotate it out from under a
	// fresh Store (rotation itself is left to the caller; Store only
	// refuses new appends past the limit).
	MaxLogLen int64

	// PruneDepth is the maxDepth passed to (*revtree.Tree).Prune after
	// every successful WithDocument callback, whether or not it changed
	// the tree. 0 disables automatic pruning.
	PruneDepth int

	// CacheSize bounds the number of hydrated trees held in the TreeCache.
	CacheSize int
}

func (o *Options) SetDefaults() {
	if o.MaxLogLen == 0 {
		o.MaxLogLen = 1 << 23
	}
	if o.CacheSize == 0 {
		o.CacheSize = 10000
	}
}
