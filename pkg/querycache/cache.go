// Package querycache is a bounded, group-invalidated cache for fetched pages.
//
// Entries are keyed by (group, key). Invalidating a group marks its entries
// stale rather than dropping them; stale entries never satisfy Get and are
// replaced by the next Put.
package querycache

import (
	"sync"

	"github.com/golang/groupcache/lru"
)

// DefaultMaxEntries bounds a cache built with a non-positive size.
const DefaultMaxEntries = 256

// ActivityGroup is the group holding a user's activity pages.
func ActivityGroup(userID string) string { return "activity:" + userID }

// CommentsGroup is the group holding a post's comment thread.
func CommentsGroup(postID string) string { return "comments:" + postID }

// PostGroup is the group holding a post and its counters.
func PostGroup(postID string) string { return "post:" + postID }

type entry struct {
	group string
	key   string
	value any
	stale bool
}

// Cache is safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	lru    *lru.Cache
	groups map[string]map[string]struct{}
}

// New returns a cache holding at most maxEntries values.
func New(maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	c := &Cache{
		lru:    lru.New(maxEntries),
		groups: make(map[string]map[string]struct{}),
	}
	c.lru.OnEvicted = func(k lru.Key, v any) {
		e := v.(*entry)
		c.forgetLocked(e.group, e.key)
	}
	return c
}

func cacheKey(group, key string) string {
	return group + "\x00" + key
}

// Get returns the fresh value stored under (group, key).
func (c *Cache) Get(group, key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.lru.Get(cacheKey(group, key))
	if !ok {
		return nil, false
	}
	e := v.(*entry)
	if e.stale {
		return nil, false
	}
	return e.value, true
}

// Put stores value under (group, key), replacing any stale copy.
func (c *Cache) Put(group, key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(cacheKey(group, key), &entry{group: group, key: key, value: value})
	keys, ok := c.groups[group]
	if !ok {
		keys = make(map[string]struct{})
		c.groups[group] = keys
	}
	keys[key] = struct{}{}
}

// Invalidate marks every entry in the given groups stale and returns how many were marked.
func (c *Cache) Invalidate(groups ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, g := range groups {
		for key := range c.groups[g] {
			v, ok := c.lru.Get(cacheKey(g, key))
			if !ok {
				continue
			}
			e := v.(*entry)
			if !e.stale {
				e.stale = true
				n++
			}
		}
	}
	return n
}

// Len returns the number of entries held, stale or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// forgetLocked drops key from the group index. Called from OnEvicted with mu held.
func (c *Cache) forgetLocked(group, key string) {
	keys, ok := c.groups[group]
	if !ok {
		return
	}
	delete(keys, key)
	if len(keys) == 0 {
		delete(c.groups, group)
	}
}
