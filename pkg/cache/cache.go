// Package cache memoizes rendered artifacts. Outputs are pure functions of
// their keys so entries are never invalidated, only evicted.
package cache

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/igolaizola/songseed/pkg/storage"
	"golang.org/x/sync/singleflight"
)

// Renderer tags persisted artifacts. Bump it whenever rendering output
// changes so stale rows are ignored.
const Renderer = "v1"

// Key is the full input tuple of a rendered artifact.
type Key struct {
	Kind   string
	Locale string
	Seed   uint64
	Index  int
	// Variant holds extra inputs such as the cover size or preview mode.
	Variant string
}

func (k Key) String() string {
	return fmt.Sprintf("%s|%s|%d|%d|%s", k.Kind, k.Locale, k.Seed, k.Index, k.Variant)
}

// Store persists artifacts behind the memory tier.
type Store interface {
	GetArtifact(ctx context.Context, id string) (*storage.Artifact, error)
	SetArtifact(ctx context.Context, v *storage.Artifact) error
}

type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
	Bytes   int64 `json:"bytes"`
}

// Cache is an LRU bounded by bytes with at most one computation per key.
// A nil *Cache computes every call.
type Cache struct {
	mu       sync.Mutex
	maxBytes int64
	size     int64
	ll       *list.List
	items    map[string]*list.Element

	group singleflight.Group
	store Store
	debug bool

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key  string
	data []byte
}

// New creates a cache holding up to maxBytes in memory. The store is
// optional.
func New(maxBytes int64, store Store, debug bool) *Cache {
	return &Cache{
		maxBytes: maxBytes,
		ll:       list.New(),
		items:    map[string]*list.Element{},
		store:    store,
		debug:    debug,
	}
}

// Get returns the cached artifact or computes it with fn. Concurrent calls
// with the same key share one computation.
func (c *Cache) Get(ctx context.Context, key Key, contentType string, fn func() ([]byte, error)) ([]byte, error) {
	if c == nil {
		return fn()
	}
	id := key.String()
	if b, ok := c.lookup(id); ok {
		c.hits.Add(1)
		return b, nil
	}

	v, err, _ := c.group.Do(id, func() (interface{}, error) {
		// The result is shared with every waiting caller, so store I/O must
		// outlive the caller that started it.
		storeCtx := context.WithoutCancel(ctx)
		if b, ok := c.lookup(id); ok {
			return b, nil
		}
		if b, ok := c.load(storeCtx, id); ok {
			c.add(id, b)
			return b, nil
		}
		c.misses.Add(1)
		b, err := fn()
		if err != nil {
			return nil, err
		}
		c.add(id, b)
		c.save(storeCtx, key, id, contentType, b)
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Cache) load(ctx context.Context, id string) ([]byte, bool) {
	if c.store == nil {
		return nil, false
	}
	a, err := c.store.GetArtifact(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		log.Println(fmt.Errorf("cache: couldn't load %s: %w", id, err))
		return nil, false
	}
	if a.Renderer != Renderer {
		return nil, false
	}
	c.hits.Add(1)
	return a.Data, true
}

func (c *Cache) save(ctx context.Context, key Key, id, contentType string, b []byte) {
	if c.store == nil {
		return
	}
	a := &storage.Artifact{
		ID:          id,
		Kind:        key.Kind,
		Renderer:    Renderer,
		ContentType: contentType,
		Data:        b,
	}
	if err := c.store.SetArtifact(ctx, a); err != nil {
		log.Println(fmt.Errorf("cache: couldn't save %s: %w", id, err))
		return
	}
	if c.debug {
		log.Printf("cache: saved %s (%d bytes)\n", id, len(b))
	}
}

func (c *Cache) lookup(id string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[id]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*entry).data, true
}

func (c *Cache) add(id string, b []byte) {
	n := int64(len(b))
	if n > c.maxBytes {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[id]; ok {
		c.ll.MoveToFront(el)
		return
	}
	c.items[id] = c.ll.PushFront(&entry{key: id, data: b})
	c.size += n
	for c.size > c.maxBytes {
		el := c.ll.Back()
		e := el.Value.(*entry)
		c.ll.Remove(el)
		delete(c.items, e.key)
		c.size -= int64(len(e.data))
	}
}

func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
		Entries: c.ll.Len(),
		Bytes:   c.size,
	}
}
