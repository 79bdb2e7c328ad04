package assessment

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/audit"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/course"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/enrollment"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/grading"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/httpx/apperr"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/logging"
)

type CourseGetter interface {
	Get(ctx context.Context, id string) (course.Course, error)
}

type EnrollmentGetter interface {
	Get(ctx context.Context, userID, courseID string) (enrollment.Enrollment, error)
}

// Service is the single authoritative home of the progress/unlock/
// attempt/grading rules the old front end re-implemented per view.
type Service struct {
	store       Store
	courses     CourseGetter
	enrollments EnrollmentGetter
	resolver    *course.Resolver
	grader      grading.Grader
	audit       *audit.Log
	log         *logging.Logger

	// serializes the eligibility-check + record critical section per
	// (test, student) pair; submissions for different pairs proceed
	// independently
	locks pairLocks
}

func NewService(store Store, courses CourseGetter, enrollments EnrollmentGetter,
	resolver *course.Resolver, grader grading.Grader, auditLog *audit.Log, log *logging.Logger) *Service {
	return &Service{
		store:       store,
		courses:     courses,
		enrollments: enrollments,
		resolver:    resolver,
		grader:      grader,
		audit:       auditLog,
		log:         log,
	}
}

// ProgressView is the progress + gating snapshot for one enrollment.
type ProgressView struct {
	CourseID     string `json:"course_id"`
	Online       bool   `json:"online"`
	TotalLessons int    `json:"total_lessons"`
	Completed    int    `json:"completed"`
	Percent      int    `json:"percent"`
	TestUnlocked bool   `json:"test_unlocked"`
}

func (s *Service) Progress(ctx context.Context, userID, courseID string) (ProgressView, error) {
	crs, err := s.courses.Get(ctx, courseID)
	if err != nil {
		return ProgressView{}, err
	}
	enr, err := s.enrollments.Get(ctx, userID, courseID)
	if err != nil {
		return ProgressView{}, err
	}
	total := s.resolver.TotalLessons(ctx, courseID, crs.Structure)
	pct := enrollment.Percent(enr, total)
	return ProgressView{
		CourseID:     courseID,
		Online:       crs.Online,
		TotalLessons: total,
		Completed:    enr.CompletedCount(),
		Percent:      pct,
		TestUnlocked: Unlocked(crs.Online, pct),
	}, nil
}

// ListTests returns a course's tests. Answer keys are stripped unless
// the caller may see them (admins).
func (s *Service) ListTests(ctx context.Context, courseID string, activeOnly, includeKeys bool) ([]Test, error) {
	tests, err := s.store.ListTests(ctx, courseID, activeOnly)
	if err != nil {
		return nil, err
	}
	if !includeKeys {
		for i := range tests {
			tests[i] = Sanitized(tests[i])
		}
	}
	return tests, nil
}

// Sanitized strips grading secrets from a test for student views.
func Sanitized(t Test) Test {
	qs := make([]Question, len(t.Questions))
	copy(qs, t.Questions)
	for i := range qs {
		qs[i].AnswerKey = nil
	}
	t.Questions = qs
	return t
}

func (s *Service) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	return s.store.ListAttempts(ctx, opts)
}

// RedactForStudent strips from a listing whatever the visibility gate
// withholds: responses and per-question detail always, score and
// percentage while pending or while the test hides results, the verdict
// when results are hidden outright.
func (s *Service) RedactForStudent(ctx context.Context, list []Attempt) []Attempt {
	show := map[string]bool{}
	for i := range list {
		a := &list[i]
		a.Responses = nil
		a.Items = nil
		visible, ok := show[a.TestID]
		if !ok {
			t, err := s.store.GetTest(ctx, a.TestID)
			visible = err == nil && t.ShowResults
			show[a.TestID] = visible
		}
		if !visible {
			a.Verdict = ""
			a.Score = 0
			a.Percentage = 0
			continue
		}
		if a.Verdict == VerdictPending {
			a.Score = 0
			a.Percentage = 0
		}
	}
	return list
}

// Submit validates, gates, grades and records one attempt. The loser of
// a duplicate concurrent submission observes a ConflictError; nothing is
// ever partially recorded.
func (s *Service) Submit(ctx context.Context, testID, userID string, responses map[string]interface{}) (Attempt, error) {
	if len(responses) == 0 {
		return Attempt{}, apperr.NewValidationError("answers required")
	}
	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return Attempt{}, err
	}
	if !t.Active {
		return Attempt{}, apperr.NewConflictError("test %s is not active", testID)
	}
	known := make(map[string]struct{}, len(t.Questions))
	for _, q := range t.Questions {
		known[q.ID] = struct{}{}
	}
	for qid, resp := range responses {
		if _, ok := known[qid]; !ok {
			return Attempt{}, apperr.NewValidationError("unknown question %q", qid)
		}
		if resp == nil {
			return Attempt{}, apperr.NewValidationError("empty response for question %q", qid)
		}
	}

	crs, err := s.courses.Get(ctx, t.CourseID)
	if err != nil {
		return Attempt{}, err
	}
	enr, err := s.enrollments.Get(ctx, userID, t.CourseID)
	if err != nil {
		return Attempt{}, err
	}
	total := s.resolver.TotalLessons(ctx, crs.ID, crs.Structure)
	if !Unlocked(crs.Online, enrollment.Percent(enr, total)) {
		return Attempt{}, apperr.NewConflictError("test %s is locked", testID)
	}

	unlock := s.locks.lock(testID + "\x00" + userID)
	defer unlock()

	attempts, err := s.store.AttemptsFor(ctx, testID, userID)
	if err != nil {
		return Attempt{}, err
	}
	if !CanStartNewAttempt(t, attempts) {
		return Attempt{}, apperr.NewConflictError("not eligible for a new attempt on test %s", testID)
	}
	if latest, ok := Latest(attempts); ok && !RetakeOffered(latest) {
		return Attempt{}, apperr.NewConflictError("retake not granted for test %s", testID)
	}

	a := s.grade(ctx, t, responses)
	a.ID = uuid.NewString()
	a.TestID = testID
	a.UserID = userID
	a.Ordinal = len(attempts) + 1
	a.SubmittedAt = time.Now().Unix()

	if err := s.store.RecordAttempt(ctx, a); err != nil {
		return Attempt{}, err
	}
	if err := s.audit.Append(ctx, audit.EventAttemptSubmitted, a.ID, map[string]interface{}{
		"test_id": testID, "user_id": userID, "ordinal": a.Ordinal, "verdict": a.Verdict,
	}); err != nil {
		s.log.Error("audit append failed", "event", audit.EventAttemptSubmitted, "attempt_id", a.ID, "err", err)
	}
	s.log.Info("attempt recorded",
		"test_id", testID, "user_id", userID, "ordinal", a.Ordinal,
		"percentage", a.Percentage, "verdict", a.Verdict)
	return a, nil
}

// grade scores every question on the test against the responses.
// Unanswered questions earn zero but still count toward the possible
// total. Verdict goes pending when scoring is administratively deferred
// or any answered item needs manual review.
func (s *Service) grade(ctx context.Context, t Test, responses map[string]interface{}) Attempt {
	var (
		earned      float64
		needsManual bool
		items       = make([]ItemScore, 0, len(t.Questions))
	)
	for _, q := range t.Questions {
		item := ItemScore{QuestionID: q.ID, Max: q.MaxPoints()}
		if resp, ok := responses[q.ID]; ok {
			res, err := s.grader.Grade(ctx, grading.Q{Type: q.Type, Points: q.MaxPoints(), AnswerKey: q.AnswerKey}, resp)
			if err != nil {
				// ungradeable response shape: zero points, reviewable
				res = grading.Result{MaxPoints: q.MaxPoints(), NeedsManual: true}
			}
			item.Earned = res.AutoPoints
			item.NeedsManual = res.NeedsManual
			item.Correct = res.AutoPoints >= item.Max
			if res.NeedsManual {
				needsManual = true
			}
			earned += res.AutoPoints
		}
		items = append(items, item)
	}

	totalPoints := t.TotalPoints()
	pct := 0.0
	if totalPoints > 0 {
		pct = 100 * earned / totalPoints
	}
	verdict := VerdictFailed
	if pct >= t.PassingScore { // boundary is inclusive
		verdict = VerdictPassed
	}
	if t.DeferScoring || needsManual {
		verdict = VerdictPending
	}
	return Attempt{
		Responses:  responses,
		Items:      items,
		Score:      earned,
		Percentage: pct,
		Verdict:    verdict,
	}
}

// Results returns the latest attempt for a student on a test, shaped by
// the visibility rules.
func (s *Service) Results(ctx context.Context, testID, userID string) (ResultView, error) {
	t, err := s.store.GetTest(ctx, testID)
	if err != nil {
		return ResultView{}, err
	}
	attempts, err := s.store.AttemptsFor(ctx, testID, userID)
	if err != nil {
		return ResultView{}, err
	}
	latest, ok := Latest(attempts)
	if !ok {
		return ResultView{}, apperr.NewNotFoundError("no attempt on test %s", testID)
	}
	return BuildResultView(t, latest), nil
}

// --- Admin operations ---

func (s *Service) PutTest(ctx context.Context, t Test) error {
	if t.ID == "" || t.CourseID == "" || t.Title == "" {
		return apperr.NewValidationError("id, course_id and title required")
	}
	if len(t.Questions) == 0 {
		return apperr.NewValidationError("a test needs at least one question")
	}
	if t.PassingScore < 0 || t.PassingScore > 100 {
		return apperr.NewValidationError("passing_score must be within [0,100]")
	}
	if t.MaxAttempts < 0 {
		return apperr.NewValidationError("max_attempts must be >= 0")
	}
	if _, err := s.courses.Get(ctx, t.CourseID); err != nil {
		return err
	}
	return s.store.PutTest(ctx, t)
}

func (s *Service) SetShowResults(ctx context.Context, testID string, show bool) error {
	if err := s.store.SetShowResults(ctx, testID, show); err != nil {
		return err
	}
	s.auditQuiet(ctx, audit.EventResultsVisibilityChanged, testID, map[string]interface{}{"show_results": show})
	return nil
}

func (s *Service) SetMaxAttempts(ctx context.Context, testID string, n int) error {
	if n < 0 {
		return apperr.NewValidationError("max_attempts must be >= 0")
	}
	if err := s.store.SetMaxAttempts(ctx, testID, n); err != nil {
		return err
	}
	s.auditQuiet(ctx, audit.EventMaxAttemptsChanged, testID, map[string]interface{}{"max_attempts": n})
	return nil
}

// SetRetakeAllowed grants or revokes the post-fail retake. Granting
// requires a graded, failed attempt: a pending one isn't resolved yet
// and a passed one has nothing to retake.
func (s *Service) SetRetakeAllowed(ctx context.Context, attemptID string, allowed bool) error {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return err
	}
	if allowed && a.Verdict != VerdictFailed {
		return apperr.NewConflictError("attempt %s is %s, retake applies to failed attempts", attemptID, a.Verdict)
	}
	if err := s.store.SetRetakeAllowed(ctx, attemptID, allowed); err != nil {
		return err
	}
	ev := audit.EventRetakeGranted
	if !allowed {
		ev = audit.EventRetakeRevoked
	}
	s.auditQuiet(ctx, ev, attemptID, map[string]interface{}{"test_id": a.TestID, "user_id": a.UserID})
	return nil
}

// RecordViolation appends an integrity event to an attempt. It never
// touches the verdict.
func (s *Service) RecordViolation(ctx context.Context, attemptID, typ, description string) (Violation, error) {
	if typ == "" {
		return Violation{}, apperr.NewValidationError("violation type required")
	}
	if _, err := s.store.GetAttempt(ctx, attemptID); err != nil {
		return Violation{}, err
	}
	v := Violation{
		ID:          uuid.NewString(),
		AttemptID:   attemptID,
		Type:        typ,
		Description: description,
		CreatedAt:   time.Now().Unix(),
	}
	if err := s.store.AddViolation(ctx, v); err != nil {
		return Violation{}, err
	}
	s.auditQuiet(ctx, audit.EventViolationRecorded, attemptID, map[string]interface{}{"type": typ})
	return v, nil
}

func (s *Service) ListViolations(ctx context.Context, attemptID string) ([]Violation, error) {
	return s.store.ListViolations(ctx, attemptID)
}

// ReleaseVerdict finishes a pending attempt: manual points are applied
// to the items flagged for review, the totals recomputed, and the final
// pass/fail verdict stored.
func (s *Service) ReleaseVerdict(ctx context.Context, attemptID string, manualPoints map[string]float64) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Verdict != VerdictPending {
		return Attempt{}, apperr.NewConflictError("attempt %s is already %s", attemptID, a.Verdict)
	}
	t, err := s.store.GetTest(ctx, a.TestID)
	if err != nil {
		return Attempt{}, err
	}

	earned := 0.0
	for i := range a.Items {
		it := &a.Items[i]
		if it.NeedsManual {
			pts := manualPoints[it.QuestionID]
			if pts < 0 {
				pts = 0
			}
			if pts > it.Max {
				pts = it.Max
			}
			it.Earned = pts
			it.Correct = pts >= it.Max
			it.NeedsManual = false
		}
		earned += it.Earned
	}
	a.Score = earned
	a.Percentage = 0
	if tp := t.TotalPoints(); tp > 0 {
		a.Percentage = 100 * earned / tp
	}
	if a.Percentage >= t.PassingScore {
		a.Verdict = VerdictPassed
	} else {
		a.Verdict = VerdictFailed
	}

	if err := s.store.ReleaseAttempt(ctx, a); err != nil {
		return Attempt{}, err
	}
	s.auditQuiet(ctx, audit.EventVerdictReleased, attemptID, map[string]interface{}{
		"verdict": a.Verdict, "percentage": a.Percentage,
	})
	return a, nil
}

func (s *Service) auditQuiet(ctx context.Context, typ, key string, data interface{}) {
	if err := s.audit.Append(ctx, typ, key, data); err != nil {
		s.log.Error("audit append failed", "event", typ, "key", key, "err", err)
	}
}

// pairLocks hands out one mutex per key, created on demand.
type pairLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (p *pairLocks) lock(key string) (unlock func()) {
	p.mu.Lock()
	if p.m == nil {
		p.m = map[string]*sync.Mutex{}
	}
	l, ok := p.m[key]
	if !ok {
		l = &sync.Mutex{}
		p.m[key] = l
	}
	p.mu.Unlock()
	l.Lock()
	return l.Unlock
}
