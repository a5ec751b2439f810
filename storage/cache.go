package storage

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/otterdb/revtree/revtree"
)

// TreeCache bounds the number of hydrated *revtree.Tree kept in memory,
// avoiding a pebble read plus a full Decode on every document access.
type TreeCache struct {
	cache *lru.Cache[string, *revtree.Tree]
}

func NewTreeCache(size int) (*TreeCache, error) {
	c, err := lru.New[string, *revtree.Tree](size)
	if err != nil {
		return nil, err
	}
	return &TreeCache{cache: c}, nil
}

func (c *TreeCache) Get(id string) (*revtree.Tree, bool) { return c.cache.Get(id) }
func (c *TreeCache) Add(id string, tree *revtree.Tree)   { c.cache.Add(id, tree) }
func (c *TreeCache) Remove(id string)                    { c.cache.Remove(id) }
func (c *TreeCache) Len() int                            { return c.cache.Len() }
