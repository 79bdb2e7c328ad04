package assessment

import (
	"context"
	"sort"
	"sync"

	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/httpx/apperr"
)

// memoryStore backs tests and offline/dev runs.
type memoryStore struct {
	mu         sync.RWMutex
	tests      map[string]Test
	attempts   map[string]Attempt
	violations map[string][]Violation // attemptID -> appended in order
}

func NewInMemoryStore() Store {
	return &memoryStore{
		tests:      map[string]Test{},
		attempts:   map[string]Attempt{},
		violations: map[string][]Violation{},
	}
}

func (m *memoryStore) PutTest(_ context.Context, t Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tests[t.ID] = t
	return nil
}

func (m *memoryStore) GetTest(_ context.Context, id string) (Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[id]
	if !ok {
		return Test{}, apperr.NewNotFoundError("test %s not found", id)
	}
	return t, nil
}

func (m *memoryStore) ListTests(_ context.Context, courseID string, activeOnly bool) ([]Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Test, 0)
	for _, t := range m.tests {
		if t.CourseID != courseID {
			continue
		}
		if activeOnly && !t.Active {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memoryStore) RecordAttempt(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.attempts {
		if ex.TestID == a.TestID && ex.UserID == a.UserID && ex.Ordinal == a.Ordinal {
			return apperr.NewConflictError("attempt %d for test %s already recorded", a.Ordinal, a.TestID)
		}
	}
	m.attempts[a.ID] = a
	return nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, apperr.NewNotFoundError("attempt %s not found", id)
	}
	return a, nil
}

func (m *memoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Attempt, 0)
	for _, a := range m.attempts {
		if opts.TestID != "" && a.TestID != opts.TestID {
			continue
		}
		if opts.UserID != "" && a.UserID != opts.UserID {
			continue
		}
		if opts.CourseID != "" {
			t, ok := m.tests[a.TestID]
			if !ok || t.CourseID != opts.CourseID {
				continue
			}
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SubmittedAt != out[j].SubmittedAt {
			return out[i].SubmittedAt > out[j].SubmittedAt
		}
		return out[i].Ordinal > out[j].Ordinal
	})
	out = paginate(out, opts.Limit, opts.Offset)
	return out, nil
}

func (m *memoryStore) AttemptsFor(_ context.Context, testID, userID string) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Attempt, 0)
	for _, a := range m.attempts {
		if a.TestID == testID && a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })
	return out, nil
}

func (m *memoryStore) SetShowResults(_ context.Context, testID string, show bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tests[testID]
	if !ok {
		return apperr.NewNotFoundError("test %s not found", testID)
	}
	t.ShowResults = show
	m.tests[testID] = t
	return nil
}

func (m *memoryStore) SetMaxAttempts(_ context.Context, testID string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tests[testID]
	if !ok {
		return apperr.NewNotFoundError("test %s not found", testID)
	}
	t.MaxAttempts = n
	m.tests[testID] = t
	return nil
}

func (m *memoryStore) SetRetakeAllowed(_ context.Context, attemptID string, allowed bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return apperr.NewNotFoundError("attempt %s not found", attemptID)
	}
	a.RetakeAllowed = allowed
	m.attempts[attemptID] = a
	return nil
}

func (m *memoryStore) ReleaseAttempt(_ context.Context, a Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ex, ok := m.attempts[a.ID]
	if !ok {
		return apperr.NewNotFoundError("attempt %s not found", a.ID)
	}
	ex.Items = a.Items
	ex.Score = a.Score
	ex.Percentage = a.Percentage
	ex.Verdict = a.Verdict
	m.attempts[a.ID] = ex
	return nil
}

func (m *memoryStore) AddViolation(_ context.Context, v Violation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.attempts[v.AttemptID]; !ok {
		return apperr.NewNotFoundError("attempt %s not found", v.AttemptID)
	}
	m.violations[v.AttemptID] = append(m.violations[v.AttemptID], v)
	return nil
}

func (m *memoryStore) ListViolations(_ context.Context, attemptID string) ([]Violation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Violation(nil), m.violations[attemptID]...), nil
}

func paginate(in []Attempt, limit, offset int) []Attempt {
	if offset > 0 {
		if offset >= len(in) {
			return nil
		}
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
