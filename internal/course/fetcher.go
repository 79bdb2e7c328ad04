package course

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/httpx/apperr"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/logging"
)

// Source fetches a course's raw structure on demand.
type Source interface {
	FetchStructure(ctx context.Context, courseID string) (Structure, error)
}

// Resolver answers "how many lessons does this course have" when the
// structure wasn't eagerly available on the enrollment. Fetches are
// bounded, retried once with backoff, collapsed per course, and cached
// for the session. On exhaustion it fails closed: total 0 keeps tests
// locked rather than falsely unlocking them.
type Resolver struct {
	src     Source
	timeout time.Duration
	backoff time.Duration
	log     *logging.Logger

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]int
}

func NewResolver(src Source, timeout, backoff time.Duration, log *logging.Logger) *Resolver {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Resolver{
		src:     src,
		timeout: timeout,
		backoff: backoff,
		log:     log,
		cache:   map[string]int{},
	}
}

// TotalLessons resolves eagerly from s when it carries any
// representation, falling back to an on-demand fetch otherwise.
func (r *Resolver) TotalLessons(ctx context.Context, courseID string, s Structure) int {
	if !s.Empty() {
		return TotalLessons(s)
	}
	return r.fetchTotal(ctx, courseID)
}

func (r *Resolver) fetchTotal(ctx context.Context, courseID string) int {
	r.mu.RLock()
	total, ok := r.cache[courseID]
	r.mu.RUnlock()
	if ok {
		return total
	}

	v, err, _ := r.group.Do(courseID, func() (interface{}, error) {
		s, err := r.fetchOnce(ctx, courseID)
		if err != nil {
			// one retry with backoff, then give up
			select {
			case <-time.After(r.backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			s, err = r.fetchOnce(ctx, courseID)
			if err != nil {
				return nil, err
			}
		}
		return TotalLessons(s), nil
	})
	if err != nil {
		r.log.Warn("course structure fetch failed, failing closed",
			"course_id", courseID, "err", err)
		return 0
	}

	total = v.(int)
	r.mu.Lock()
	r.cache[courseID] = total
	r.mu.Unlock()
	return total
}

func (r *Resolver) fetchOnce(ctx context.Context, courseID string) (Structure, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	s, err := r.src.FetchStructure(ctx, courseID)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return Structure{}, apperr.NewUpstreamTimeoutError("course structure fetch", err)
		}
		return Structure{}, err
	}
	return s, nil
}

// Invalidate drops the cached total for a course. Fired by external
// triggers (course edited, client regained focus); the resolver itself
// stays ignorant of where the trigger came from.
func (r *Resolver) Invalidate(courseID string) {
	r.mu.Lock()
	delete(r.cache, courseID)
	r.mu.Unlock()
}
