package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memEntry struct {
	key     string
	value   []byte
	expires time.Time
}

// MemoryOption configures MemoryCache.
type MemoryOption func(*MemoryCache)

// WithMemoryMaxSize bounds the number of entries; the least recently used
// entry is evicted first.
func WithMemoryMaxSize(n int) MemoryOption {
	return func(c *MemoryCache) {
		if n > 0 {
			c.maxSize = n
		}
	}
}

// WithMemoryDefaultTTL is applied to entries stored with a zero TTL.
func WithMemoryDefaultTTL(ttl time.Duration) MemoryOption {
	return func(c *MemoryCache) {
		c.defaultTTL = ttl
	}
}

// WithMemorySweep sets how often expired entries are dropped.
func WithMemorySweep(every time.Duration) MemoryOption {
	return func(c *MemoryCache) {
		c.sweepEvery = every
	}
}

// MemoryCache is an in-process Store with LRU eviction.
type MemoryCache struct {
	mu         sync.Mutex
	items      map[string]*list.Element
	order      *list.List // front is most recently used
	maxSize    int
	defaultTTL time.Duration
	sweepEvery time.Duration
	now        func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	c := &MemoryCache{
		items:      make(map[string]*list.Element),
		order:      list.New(),
		maxSize:    1000,
		defaultTTL: 7 * 24 * time.Hour,
		sweepEvery: 5 * time.Minute,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sweepEvery > 0 {
		go c.sweep()
	}
	return c
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	buf := append([]byte(nil), value...)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		e := el.Value.(*memEntry)
		e.value, e.expires = buf, c.now().Add(ttl)
		c.order.MoveToFront(el)
		return nil
	}
	for c.order.Len() >= c.maxSize {
		c.remove(c.order.Back())
	}
	c.items[key] = c.order.PushFront(&memEntry{key: key, value: buf, expires: c.now().Add(ttl)})
	return nil
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, ErrMiss
	}
	e := el.Value.(*memEntry)
	if c.now().After(e.expires) {
		c.remove(el)
		return nil, ErrMiss
	}
	c.order.MoveToFront(el)
	return append([]byte(nil), e.value...), nil
}

func (c *MemoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if el, ok := c.items[k]; ok {
			c.remove(el)
		}
	}
	return nil
}

// Len counts entries, expired ones included until they are swept.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Close stops the sweeper.
func (c *MemoryCache) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

func (c *MemoryCache) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*memEntry).key)
}

func (c *MemoryCache) sweep() {
	t := time.NewTicker(c.sweepEvery)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-t.C:
			c.mu.Lock()
			now := c.now()
			for el := c.order.Front(); el != nil; {
				next := el.Next()
				if now.After(el.Value.(*memEntry).expires) {
					c.remove(el)
				}
				el = next
			}
			c.mu.Unlock()
		}
	}
}
