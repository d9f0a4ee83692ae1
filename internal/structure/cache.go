package structure

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// CachedProvider memoizes structures from an inner Provider for a fixed TTL.
// Concurrent misses for the same lesson share one fetch. NotFound results
// are cached too, so unknown lessons do not hammer the backing store.
type CachedProvider struct {
	inner Provider
	ttl   time.Duration
	now   func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	items map[string]cacheEntry
}

type cacheEntry struct {
	lesson  *Lesson
	missing bool
	expires time.Time
}

// NewCachedProvider wraps inner. A non-positive ttl disables caching but
// keeps request coalescing.
func NewCachedProvider(inner Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]cacheEntry),
	}
}

func (c *CachedProvider) Structure(ctx context.Context, lessonID string) (*Lesson, error) {
	if e, ok := c.lookup(lessonID); ok {
		if e.missing {
			return nil, ErrNotFound
		}
		return e.lesson, nil
	}

	v, err, _ := c.group.Do(lessonID, func() (any, error) {
		l, err := c.inner.Structure(ctx, lessonID)
		switch {
		case errors.Is(err, ErrNotFound):
			c.store(lessonID, cacheEntry{missing: true})
			return nil, ErrNotFound
		case err != nil:
			return nil, err
		}
		c.store(lessonID, cacheEntry{lesson: l})
		return l, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Lesson), nil
}

// Invalidate drops a cached lesson, e.g. after an import.
func (c *CachedProvider) Invalidate(lessonID string) {
	c.mu.Lock()
	delete(c.items, lessonID)
	c.mu.Unlock()
}

func (c *CachedProvider) lookup(lessonID string) (cacheEntry, bool) {
	if c.ttl <= 0 {
		return cacheEntry{}, false
	}
	c.mu.RLock()
	e, ok := c.items[lessonID]
	c.mu.RUnlock()
	if !ok || c.now().After(e.expires) {
		return cacheEntry{}, false
	}
	return e, true
}

func (c *CachedProvider) store(lessonID string, e cacheEntry) {
	if c.ttl <= 0 {
		return
	}
	e.expires = c.now().Add(c.ttl)
	c.mu.Lock()
	c.items[lessonID] = e
	c.mu.Unlock()
}

// StaticProvider serves a fixed set of lessons from memory.
type StaticProvider map[string]*Lesson

func (p StaticProvider) Structure(_ context.Context, lessonID string) (*Lesson, error) {
	l, ok := p[lessonID]
	if !ok {
		return nil, ErrNotFound
	}
	return l, nil
}
