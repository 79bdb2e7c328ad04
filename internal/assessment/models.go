package assessment

// Verdict is the three-valued outcome of grading an attempt. Pending is
// a real state (grading or release still outstanding), not a missing
// boolean.
type Verdict string

const (
	VerdictPending Verdict = "pending"
	VerdictPassed  Verdict = "passed"
	VerdictFailed  Verdict = "failed"
)

type Choice struct {
	ID    string `json:"id,omitempty"`
	Label string `json:"label,omitempty"`
}

type Question struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"` // mcq_single, mcq_multi, true_false, short_word, numeric, essay
	Prompt    string   `json:"prompt,omitempty"`
	Choices   []Choice `json:"choices,omitempty"`
	AnswerKey []string `json:"answer_key,omitempty"`
	Points    float64  `json:"points,omitempty"`
}

// MaxPoints defaults unspecified question weights to 1.
func (q Question) MaxPoints() float64 {
	if q.Points > 0 {
		return q.Points
	}
	return 1
}

// Test is immutable once published except for the admin knobs: active,
// show_results, max_attempts.
type Test struct {
	ID           string     `json:"id"`
	CourseID     string     `json:"course_id"`
	Title        string     `json:"title"`
	TimeLimitSec int        `json:"time_limit_sec,omitempty"`
	PassingScore float64    `json:"passing_score"`          // percentage threshold, inclusive
	MaxAttempts  int        `json:"max_attempts"`           // 0 = unlimited
	Active       bool       `json:"active"`
	ShowResults  bool       `json:"show_results"`
	DeferScoring bool       `json:"defer_scoring,omitempty"` // admin must release verdicts
	Questions    []Question `json:"questions,omitempty"`
	CreatedAt    int64      `json:"created_at,omitempty"`
}

// TotalPoints is the denominator for the attempt percentage.
func (t Test) TotalPoints() float64 {
	total := 0.0
	for _, q := range t.Questions {
		total += q.MaxPoints()
	}
	return total
}

// ItemScore is the per-question grading outcome frozen onto the attempt
// at submission time. Earned may change once, at verdict release, for
// manually reviewed items.
type ItemScore struct {
	QuestionID  string  `json:"question_id"`
	Earned      float64 `json:"earned"`
	Max         float64 `json:"max"`
	Correct     bool    `json:"correct"`
	NeedsManual bool    `json:"needs_manual,omitempty"`
}

// Attempt is immutable after submission except for the retake-allowed
// flag and the eventual release of a pending verdict.
type Attempt struct {
	ID            string                 `json:"id"`
	TestID        string                 `json:"test_id"`
	UserID        string                 `json:"user_id"`
	Ordinal       int                    `json:"ordinal"`
	Responses     map[string]interface{} `json:"responses,omitempty"`
	Items         []ItemScore            `json:"items,omitempty"`
	Score         float64                `json:"score"`
	Percentage    float64                `json:"percentage"` // full precision; rounded at the edge
	Verdict       Verdict                `json:"verdict,omitempty"`
	RetakeAllowed bool                   `json:"retake_allowed"`
	SubmittedAt   int64                  `json:"submitted_at"`
}

// Violation is an informational integrity record appended to one
// attempt. It never alters the verdict; consequences are an
// administrator decision.
type Violation struct {
	ID          string `json:"id"`
	AttemptID   string `json:"attempt_id"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}
