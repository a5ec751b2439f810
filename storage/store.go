package storage

import (
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/otterdb/revtree/delta"
	"github.com/otterdb/revtree/revtree"
	"github.com/otterdb/revtree/utils"
)

const docPrefix byte = 'D'

func docKey(id string) []byte {
	key := make([]byte, 0, 1+len(id))
	key = append(key, docPrefix)
	return append(key, id...)
}

// Store is a pebble-backed collection of per-document revtree.Trees: one
// pebble key per document holding its latest encoded snapshot, an
// append-only BodyLog backing old bodies evicted from live trees, a
// bounded TreeCache of hydrated trees, and a per-document lock table
// serializing the single-owner access revtree.Tree requires.
type Store struct {
	db      *pebble.DB
	bodyLog *BodyLog
	cache   *TreeCache
	expiry  *ExpiryIndex
	metrics *Metrics
	codec   revtree.DeltaCodec
	log     utils.Logger

	locks *xsync.MapOf[string, *sync.Mutex]

	opts Options
	dir  string
}

var _ ExpiryDeleter = (*Store)(nil)

// Create opens a brand-new store at dir, failing if one already exists.
func Create(dir string, opts Options, log utils.Logger) (*Store, error) {
	opts.SetDefaults()
	if log == nil {
		log = utils.NewDefaultLogger(0)
	}
	return open(dir, opts, log, &pebble.Options{ErrorIfExists: true})
}

// Open opens an existing store at dir.
func Open(dir string, opts Options, log utils.Logger) (*Store, error) {
	opts.SetDefaults()
	if log == nil {
		log = utils.NewDefaultLogger(0)
	}
	return open(dir, opts, log, &pebble.Options{ErrorIfNotExists: true})
}

func open(dir string, opts Options, log utils.Logger, pebbleOpts *pebble.Options) (*Store, error) {
	db, err := pebble.Open(dir, pebbleOpts)
	if err != nil {
		return nil, errors.Wrap(err, "storage: open pebble")
	}

	bodyLog, err := OpenBodyLog(filepath.Join(dir, "bodies.log"), opts.MaxLogLen)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	cache, err := NewTreeCache(opts.CacheSize)
	if err != nil {
		_ = bodyLog.Close()
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:      db,
		bodyLog: bodyLog,
		cache:   cache,
		expiry:  NewExpiryIndex(db),
		metrics: NewMetrics(db),
		codec:   delta.NewCodec(delta.NoChecksum),
		log:     log,
		locks:   xsync.NewMapOf[string, *sync.Mutex](),
		opts:    opts,
		dir:     dir,
	}, nil
}

// Metrics returns the prometheus.Collector tracking this Store's pebble
// and revtree-level statistics; callers register it with their own
// registry.
func (s *Store) Metrics() *Metrics { return s.metrics }

// Expiry returns the store's expiry index.
func (s *Store) Expiry() *ExpiryIndex { return s.expiry }

func (s *Store) Close() error {
	err := s.bodyLog.Close()
	if cerr := s.db.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (s *Store) lockFor(id string) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return lock
}

// LoadTree returns id's current tree, hydrating it from pebble (or
// returning a fresh empty tree if none exists yet) if it isn't already
// cached. The returned tree has its BodyLoader and DeltaCodec wired.
func (s *Store) LoadTree(id string) (*revtree.Tree, error) {
	if t, ok := s.cache.Get(id); ok {
		return t, nil
	}

	raw, closer, err := s.db.Get(docKey(id))
	if err == pebble.ErrNotFound {
		tree := revtree.New()
		tree.SetBodyLoader(s.bodyLog)
		tree.SetDeltaCodec(s.codec)
		return tree, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "storage: load document")
	}
	defer closer.Close()

	if len(raw) < 8 {
		return nil, errors.Errorf("storage: corrupt document record for %q", id)
	}
	offset := beUint64(raw[:8])
	encoded := append([]byte(nil), raw[8:]...)

	tree, err := revtree.Decode(encoded, 0, offset)
	if err != nil {
		return nil, errors.Wrapf(err, "storage: decode document %q", id)
	}
	tree.SetBodyLoader(s.bodyLog)
	tree.SetDeltaCodec(s.codec)
	s.cache.Add(id, tree)
	return tree, nil
}

// SaveTree appends tree's encoded snapshot to the body log, persists it to
// pebble keyed by id, and clears the tree's changed flag. A no-op if the
// tree hasn't changed since it was last loaded or saved.
func (s *Store) SaveTree(id string, tree *revtree.Tree) error {
	if !tree.Changed() {
		return nil
	}

	encoded := tree.Encode()
	offset, err := s.bodyLog.Append(encoded)
	if err != nil {
		return errors.Wrap(err, "storage: append body log")
	}

	record := make([]byte, 8+len(encoded))
	putUint64(record[:8], offset)
	copy(record[8:], encoded)

	if err := s.db.Set(docKey(id), record, pebble.Sync); err != nil {
		return errors.Wrapf(err, "storage: save document %q", id)
	}

	tree.SetBodyOffset(offset)
	tree.ClearChanged()
	s.cache.Add(id, tree)
	return nil
}

// DeleteDocument removes id's stored tree and cache entry. Implements
// ExpiryDeleter for ExpiryIndex.PurgeExpired.
func (s *Store) DeleteDocument(id string) error {
	s.cache.Remove(id)
	if err := s.db.Delete(docKey(id), pebble.Sync); err != nil {
		return errors.Wrapf(err, "storage: delete document %q", id)
	}
	return nil
}

// WithDocument loads id's tree, runs fn against it under id's lock, saves
// any resulting change back, and — if Options.PruneDepth is set — prunes
// the tree to that depth before saving. fn's error aborts the save.
func (s *Store) WithDocument(id string, fn func(tree *revtree.Tree) error) error {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	tree, err := s.LoadTree(id)
	if err != nil {
		return err
	}
	if err := fn(tree); err != nil {
		return err
	}
	if s.opts.PruneDepth > 0 {
		if n := tree.Prune(s.opts.PruneDepth); n > 0 {
			s.metrics.ObservePrune(n)
			s.log.Debug("pruned revisions", "id", id, "count", n)
		}
	}
	if err := s.SaveTree(id, tree); err != nil {
		return err
	}
	s.log.Debug("saved document", "id", id)
	return nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b[:8] {
		v = v<<8 | uint64(c)
	}
	return v
}

func putUint64(dst []byte, v uint64) {
	for i := 7; i >= 0; i-- {
		dst[i] = byte(v)
		v >>= 8
	}
}

