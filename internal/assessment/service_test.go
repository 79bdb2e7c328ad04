package assessment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/course"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/enrollment"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/grading"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/httpx/apperr"
	"github.com/OwnTechnologiesClients/BVT-Training-Website-sub001/internal/logging"
)

/* ---------------- in-memory fakes for the collaborator services ---------------- */

type fakeCourses struct {
	mu      sync.Mutex
	courses map[string]course.Course
}

func (f *fakeCourses) Get(_ context.Context, id string) (course.Course, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.courses[id]
	if !ok {
		return course.Course{}, apperr.NewNotFoundError("course %s not found", id)
	}
	return c, nil
}

type fakeEnrollments struct {
	mu   sync.Mutex
	rows map[string]enrollment.Enrollment // key: userID|courseID
}

func (f *fakeEnrollments) Get(_ context.Context, userID, courseID string) (enrollment.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rows[userID+"|"+courseID]
	if !ok {
		return enrollment.Enrollment{}, apperr.NewNotFoundError("no enrollment")
	}
	return e, nil
}

type staticSource struct{}

func (staticSource) FetchStructure(context.Context, string) (course.Structure, error) {
	return course.Structure{}, errors.New("course service unavailable")
}

type fixture struct {
	svc   *Service
	store Store
	crs   *fakeCourses
	enr   *fakeEnrollments
}

// chapteredCourse: 2 chapters with 4 lessons each, total 8. Mirrors the
// shape the course service reports for most catalog courses.
func chapteredCourse(id string, online bool) course.Course {
	mk := func() course.Unit {
		u := course.Unit{ID: "ch"}
		for i := 0; i < 4; i++ {
			u.Lessons = append(u.Lessons, course.Lesson{ID: fmt.Sprintf("l%d", i)})
		}
		return u
	}
	return course.Course{
		ID:        id,
		Online:    online,
		Structure: course.Structure{Chapters: []course.Unit{mk(), mk()}},
	}
}

func enrolled(userID, courseID string, completed int) enrollment.Enrollment {
	set := map[string]struct{}{}
	for i := 0; i < completed; i++ {
		set[fmt.Sprintf("lesson-%d", i)] = struct{}{}
	}
	return enrollment.Enrollment{
		ID: "e-" + userID, UserID: userID, CourseID: courseID,
		Status: enrollment.StatusActive, CompletedLessonIDs: set,
	}
}

// twentyQuestionTest: 20 mcq questions worth 5 points each, pass at 70%.
func twentyQuestionTest(id, courseID string) Test {
	t := Test{
		ID: id, CourseID: courseID, Title: "Final assessment",
		PassingScore: 70, MaxAttempts: 2, Active: true, ShowResults: true,
	}
	for i := 0; i < 20; i++ {
		t.Questions = append(t.Questions, Question{
			ID: fmt.Sprintf("q%d", i), Type: "mcq_single", Points: 5, AnswerKey: []string{"a"},
		})
	}
	return t
}

// answersScoring answers n questions correctly and the rest wrong.
func answersScoring(t Test, correct int) map[string]interface{} {
	out := map[string]interface{}{}
	for i, q := range t.Questions {
		if i < correct {
			out[q.ID] = q.AnswerKey[0]
		} else {
			out[q.ID] = "z"
		}
	}
	return out
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := NewInMemoryStore()
	crs := &fakeCourses{courses: map[string]course.Course{}}
	enr := &fakeEnrollments{rows: map[string]enrollment.Enrollment{}}
	resolver := course.NewResolver(staticSource{}, 50*time.Millisecond, time.Millisecond, logging.Nop())
	svc := NewService(store, crs, enr, resolver, grading.NewDefaultGrader(), nil, logging.Nop())
	return fixture{svc: svc, store: store, crs: crs, enr: enr}
}

func (f fixture) seed(t *testing.T, c course.Course, e enrollment.Enrollment, tests ...Test) {
	t.Helper()
	f.crs.mu.Lock()
	f.crs.courses[c.ID] = c
	f.crs.mu.Unlock()
	f.enr.mu.Lock()
	f.enr.rows[e.UserID+"|"+e.CourseID] = e
	f.enr.mu.Unlock()
	for _, tst := range tests {
		if err := f.store.PutTest(context.Background(), tst); err != nil {
			t.Fatal(err)
		}
	}
}

func isConflict(err error) bool {
	var ce *apperr.ConflictError
	return errors.As(err, &ce)
}

/* ---------------- tests ---------------- */

// The full journey: 8/8 lessons -> unlocked -> fail at 65% -> no retake
// until the admin grants one -> exactly one further attempt accepted.
func TestSubmitRetakeJourney(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tst := twentyQuestionTest("t1", "c1")
	f.seed(t, chapteredCourse("c1", true), enrolled("u1", "c1", 8), tst)

	pv, err := f.svc.Progress(ctx, "u1", "c1")
	if err != nil {
		t.Fatal(err)
	}
	if pv.TotalLessons != 8 || pv.Percent != 100 || !pv.TestUnlocked {
		t.Fatalf("progress view = %+v", pv)
	}

	a1, err := f.svc.Submit(ctx, "t1", "u1", answersScoring(tst, 13)) // 65/100
	if err != nil {
		t.Fatal(err)
	}
	if a1.Verdict != VerdictFailed || a1.Percentage != 65 || a1.Ordinal != 1 {
		t.Fatalf("first attempt = %+v", a1)
	}

	rv, err := f.svc.Results(ctx, "t1", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if rv.RetakeOffered {
		t.Fatal("retake must not be offered before the admin grant")
	}

	// quota remains (1 of 2 used), but no grant yet
	if _, err := f.svc.Submit(ctx, "t1", "u1", answersScoring(tst, 15)); !isConflict(err) {
		t.Fatalf("ungranted retake should conflict, got %v", err)
	}

	if err := f.svc.SetRetakeAllowed(ctx, a1.ID, true); err != nil {
		t.Fatal(err)
	}
	a2, err := f.svc.Submit(ctx, "t1", "u1", answersScoring(tst, 15)) // 75/100
	if err != nil {
		t.Fatal(err)
	}
	if a2.Verdict != VerdictPassed || a2.Ordinal != 2 {
		t.Fatalf("second attempt = %+v", a2)
	}

	// passed: permanently foreclosed regardless of anything else
	if _, err := f.svc.Submit(ctx, "t1", "u1", answersScoring(tst, 20)); !isConflict(err) {
		t.Fatalf("post-pass submission should conflict, got %v", err)
	}
}

func TestSubmitRespectsHardCap(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tst := twentyQuestionTest("t1", "c1") // MaxAttempts: 2
	f.seed(t, chapteredCourse("c1", true), enrolled("u1", "c1", 8), tst)

	a1, _ := f.svc.Submit(ctx, "t1", "u1", answersScoring(tst, 5))
	_ = f.svc.SetRetakeAllowed(ctx, a1.ID, true)
	a2, err := f.svc.Submit(ctx, "t1", "u1", answersScoring(tst, 5))
	if err != nil {
		t.Fatal(err)
	}
	// even with a fresh grant, the cap of 2 holds
	_ = f.svc.SetRetakeAllowed(ctx, a2.ID, true)
	if _, err := f.svc.Submit(ctx, "t1", "u1", answersScoring(tst, 20)); !isConflict(err) {
		t.Fatalf("grant must not override the hard cap, got %v", err)
	}

	// the admin raises the cap itself: eligibility reopens live
	if err := f.svc.SetMaxAttempts(ctx, "t1", 3); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Submit(ctx, "t1", "u1", answersScoring(tst, 20)); err != nil {
		t.Fatalf("raised cap + grant should accept, got %v", err)
	}
}

func TestSubmitGating(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tst := twentyQuestionTest("t1", "c1")
	f.seed(t, chapteredCourse("c1", true), enrolled("u1", "c1", 7), tst) // 7/8 = 88%

	if _, err := f.svc.Submit(ctx, "t1", "u1", answersScoring(tst, 20)); !isConflict(err) {
		t.Fatalf("99%%-style progress must gate like 0%%, got %v", err)
	}

	// offline course never unlocks, whatever the reported progress
	tst2 := twentyQuestionTest("t2", "c2")
	f.seed(t, chapteredCourse("c2", false), enrolled("u2", "c2", 8), tst2)
	if _, err := f.svc.Submit(ctx, "t2", "u2", answersScoring(tst2, 20)); !isConflict(err) {
		t.Fatalf("offline course test should stay locked, got %v", err)
	}
	pv, err := f.svc.Progress(ctx, "u2", "c2")
	if err != nil {
		t.Fatal(err)
	}
	if pv.TestUnlocked {
		t.Fatal("offline course must never report unlocked")
	}
}

// An unreachable course service means total=0, progress 0, test locked:
// the gate fails closed instead of falsely unlocking.
func TestSubmitFailsClosedOnUpstreamTimeout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tst := twentyQuestionTest("t1", "c1")
	bare := course.Course{ID: "c1", Online: true} // no eager structure
	f.seed(t, bare, enrolled("u1", "c1", 8), tst)

	if _, err := f.svc.Submit(ctx, "t1", "u1", answersScoring(tst, 20)); !isConflict(err) {
		t.Fatalf("unresolvable structure must keep the test locked, got %v", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tst := twentyQuestionTest("t1", "c1")
	f.seed(t, chapteredCourse("c1", true), enrolled("u1", "c1", 8), tst)

	var ve *apperr.ValidationError
	if _, err := f.svc.Submit(ctx, "t1", "u1", nil); !errors.As(err, &ve) {
		t.Fatalf("empty answers should fail validation, got %v", err)
	}
	if _, err := f.svc.Submit(ctx, "t1", "u1", map[string]interface{}{"nope": "a"}); !errors.As(err, &ve) {
		t.Fatalf("unknown question should fail validation, got %v", err)
	}
	// a failed validation never leaves a partial attempt behind
	if attempts, _ := f.store.AttemptsFor(ctx, "t1", "u1"); len(attempts) != 0 {
		t.Fatalf("validation failure recorded %d attempts", len(attempts))
	}

	var ne *apperr.NotFoundError
	if _, err := f.svc.Submit(ctx, "missing", "u1", map[string]interface{}{"q0": "a"}); !errors.As(err, &ne) {
		t.Fatalf("unknown test should be not-found, got %v", err)
	}
}

// Duplicate-tab submission: many goroutines race the first attempt,
// exactly one may win.
func TestSubmitConcurrentDuplicates(t *testing.T) {
	f := newFixture(t)
	tst := twentyQuestionTest("t1", "c1")
	f.seed(t, chapteredCourse("c1", true), enrolled("u1", "c1", 8), tst)

	const racers = 16
	var wg sync.WaitGroup
	results := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Submit(context.Background(), "t1", "u1", answersScoring(tst, 5))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	accepted, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			accepted++
		case isConflict(err):
			conflicts++
		default:
			t.Fatalf("unexpected error class: %v", err)
		}
	}
	if accepted != 1 || conflicts != racers-1 {
		t.Fatalf("accepted=%d conflicts=%d, want 1/%d", accepted, conflicts, racers-1)
	}
	attempts, _ := f.store.AttemptsFor(context.Background(), "t1", "u1")
	if len(attempts) != 1 {
		t.Fatalf("ledger has %d attempts, want 1", len(attempts))
	}
}

func TestDeferredScoringAndRelease(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tst := twentyQuestionTest("t1", "c1")
	tst.DeferScoring = true
	f.seed(t, chapteredCourse("c1", true), enrolled("u1", "c1", 8), tst)

	a, err := f.svc.Submit(ctx, "t1", "u1", answersScoring(tst, 15))
	if err != nil {
		t.Fatal(err)
	}
	if a.Verdict != VerdictPending {
		t.Fatalf("verdict = %s, want pending", a.Verdict)
	}
	// percentage is computed and stored, but withheld from the student
	if a.Percentage != 75 {
		t.Fatalf("stored percentage = %v", a.Percentage)
	}
	rv, _ := f.svc.Results(ctx, "t1", "u1")
	if rv.Status != ResultStatusAwaiting || rv.Score != nil {
		t.Fatalf("pending result view = %+v", rv)
	}

	// pending blocks another attempt
	if _, err := f.svc.Submit(ctx, "t1", "u1", answersScoring(tst, 20)); !isConflict(err) {
		t.Fatalf("pending attempt should block submissions, got %v", err)
	}
	// and cannot be granted a retake
	if err := f.svc.SetRetakeAllowed(ctx, a.ID, true); !isConflict(err) {
		t.Fatalf("retake grant on pending attempt should conflict, got %v", err)
	}

	released, err := f.svc.ReleaseVerdict(ctx, a.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	if released.Verdict != VerdictPassed {
		t.Fatalf("released verdict = %s", released.Verdict)
	}
	rv, _ = f.svc.Results(ctx, "t1", "u1")
	if rv.Status != ResultStatusGraded || rv.Score == nil {
		t.Fatalf("released result view = %+v", rv)
	}

	if _, err := f.svc.ReleaseVerdict(ctx, a.ID, nil); !isConflict(err) {
		t.Fatalf("double release should conflict, got %v", err)
	}
}

func TestEssayForcesPendingAndManualPointsDecide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tst := Test{
		ID: "t1", CourseID: "c1", Title: "Written exam",
		PassingScore: 70, Active: true, ShowResults: true,
		Questions: []Question{
			{ID: "q1", Type: "mcq_single", Points: 50, AnswerKey: []string{"a"}},
			{ID: "q2", Type: "essay", Points: 50},
		},
	}
	f.seed(t, chapteredCourse("c1", true), enrolled("u1", "c1", 8), tst)

	a, err := f.svc.Submit(ctx, "t1", "u1", map[string]interface{}{"q1": "a", "q2": "my essay"})
	if err != nil {
		t.Fatal(err)
	}
	if a.Verdict != VerdictPending {
		t.Fatalf("answered essay should defer the verdict, got %s", a.Verdict)
	}

	released, err := f.svc.ReleaseVerdict(ctx, a.ID, map[string]float64{"q2": 25})
	if err != nil {
		t.Fatal(err)
	}
	if released.Score != 75 || released.Verdict != VerdictPassed {
		t.Fatalf("released = %+v", released)
	}
}

func TestViolationsAreInformational(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tst := twentyQuestionTest("t1", "c1")
	f.seed(t, chapteredCourse("c1", true), enrolled("u1", "c1", 8), tst)

	a, _ := f.svc.Submit(ctx, "t1", "u1", answersScoring(tst, 15))
	if a.Verdict != VerdictPassed {
		t.Fatalf("verdict = %s", a.Verdict)
	}

	if _, err := f.svc.RecordViolation(ctx, a.ID, "tab_switch", "left the test page"); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.RecordViolation(ctx, a.ID, "", ""); err == nil {
		t.Fatal("violation without a type should fail validation")
	}

	vs, err := f.svc.ListViolations(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(vs) != 1 || vs[0].Type != "tab_switch" {
		t.Fatalf("violations = %+v", vs)
	}
	// the verdict is untouched no matter how many violations pile up
	got, _ := f.store.GetAttempt(ctx, a.ID)
	if got.Verdict != VerdictPassed {
		t.Fatalf("verdict changed to %s", got.Verdict)
	}
}

func TestPassingBoundaryInclusive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tst := twentyQuestionTest("t1", "c1") // pass at 70
	f.seed(t, chapteredCourse("c1", true), enrolled("u1", "c1", 8), tst)

	a, err := f.svc.Submit(ctx, "t1", "u1", answersScoring(tst, 14)) // exactly 70/100
	if err != nil {
		t.Fatal(err)
	}
	if a.Verdict != VerdictPassed {
		t.Fatalf("70%% against threshold 70 must pass, got %s", a.Verdict)
	}
}

func TestListTestsStripsAnswerKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tst := twentyQuestionTest("t1", "c1")
	inactive := twentyQuestionTest("t2", "c1")
	inactive.Active = false
	f.seed(t, chapteredCourse("c1", true), enrolled("u1", "c1", 8), tst, inactive)

	list, err := f.svc.ListTests(ctx, "c1", true, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("activeOnly list = %d tests", len(list))
	}
	for _, q := range list[0].Questions {
		if q.AnswerKey != nil {
			t.Fatal("student list leaked answer keys")
		}
	}
	// the stored test still has its keys
	stored, _ := f.store.GetTest(ctx, "t1")
	if stored.Questions[0].AnswerKey == nil {
		t.Fatal("sanitizing must not mutate the stored test")
	}
}
