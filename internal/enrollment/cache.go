package enrollment

import (
	"context"
	"sync"
)

// Getter is the enrollment read path the cache sits in front of.
type Getter interface {
	Get(ctx context.Context, userID, courseID string) (Enrollment, error)
}

// Cache is a read-through snapshot cache over a Getter. The front end's
// old habit of refetching everything whenever a tab regained focus is
// generalized here: callers fire Invalidate on whatever external trigger
// they care about and the next read goes back to the source.
type Cache struct {
	src Getter

	mu      sync.RWMutex
	entries map[cacheKey]Enrollment
}

type cacheKey struct{ userID, courseID string }

func NewCache(src Getter) *Cache {
	return &Cache{src: src, entries: map[cacheKey]Enrollment{}}
}

func (c *Cache) Get(ctx context.Context, userID, courseID string) (Enrollment, error) {
	k := cacheKey{userID, courseID}
	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if ok {
		return e, nil
	}
	e, err := c.src.Get(ctx, userID, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	c.mu.Lock()
	c.entries[k] = e
	c.mu.Unlock()
	return e, nil
}

// Invalidate drops one student/course snapshot.
func (c *Cache) Invalidate(userID, courseID string) {
	c.mu.Lock()
	delete(c.entries, cacheKey{userID, courseID})
	c.mu.Unlock()
}

// InvalidateUser drops every snapshot for a student.
func (c *Cache) InvalidateUser(userID string) {
	c.mu.Lock()
	for k := range c.entries {
		if k.userID == userID {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}
