package assessment

import "context"

type AttemptListOpts struct {
	TestID   string // filter by test
	UserID   string // filter by student
	CourseID string // filter by owning course
	Limit    int
	Offset   int
}

// Store is the persistence boundary for tests, attempts and violations.
// RecordAttempt must be all-or-nothing and must surface a duplicate
// (test, user, ordinal) as a ConflictError, never overwrite.
type Store interface {
	PutTest(ctx context.Context, t Test) error
	GetTest(ctx context.Context, id string) (Test, error)
	ListTests(ctx context.Context, courseID string, activeOnly bool) ([]Test, error)

	RecordAttempt(ctx context.Context, a Attempt) error
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
	AttemptsFor(ctx context.Context, testID, userID string) ([]Attempt, error)

	// Admin knobs. The attempt/test otherwise stays immutable.
	SetShowResults(ctx context.Context, testID string, show bool) error
	SetMaxAttempts(ctx context.Context, testID string, n int) error
	SetRetakeAllowed(ctx context.Context, attemptID string, allowed bool) error

	// ReleaseAttempt persists the re-scored items, score, percentage and
	// final verdict of a previously pending attempt.
	ReleaseAttempt(ctx context.Context, a Attempt) error

	AddViolation(ctx context.Context, v Violation) error
	ListViolations(ctx context.Context, attemptID string) ([]Violation, error)
}
