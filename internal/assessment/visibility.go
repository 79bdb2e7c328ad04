package assessment

import "strconv"

// Result view statuses.
const (
	ResultStatusSubmitted = "submitted"        // ack only, feedback withheld for this test
	ResultStatusAwaiting  = "awaiting_results" // verdict pending administrative release
	ResultStatusGraded    = "graded"           // full detail
)

type ItemView struct {
	QuestionID    string   `json:"question_id"`
	Correct       bool     `json:"correct"`
	Earned        float64  `json:"earned"`
	Max           float64  `json:"max"`
	CorrectAnswer []string `json:"correct_answer,omitempty"` // revealed for failed items only
}

// ResultView is what a student may see about an attempt. Score, verdict
// and per-question detail are pointers so a withheld field is absent
// from the payload rather than zero-valued.
type ResultView struct {
	AttemptID     string     `json:"attempt_id"`
	TestID        string     `json:"test_id"`
	Ordinal       int        `json:"ordinal"`
	Status        string     `json:"status"`
	Verdict       *Verdict   `json:"verdict,omitempty"`
	Score         *float64   `json:"score,omitempty"`
	Percentage    *string    `json:"percentage,omitempty"` // one decimal place
	Items         []ItemView `json:"items,omitempty"`
	RetakeOffered bool       `json:"retake_offered"`
	SubmittedAt   int64      `json:"submitted_at"`
}

// BuildResultView applies the visibility rules:
//
//   - show_results off: submission acknowledgment only, whatever the
//     verdict — the assessment exists but feedback is withheld for this
//     test platform-wide
//   - verdict pending: "awaiting results", no score
//   - otherwise: score, per-question correctness, and the correct answer
//     revealed for items the student missed
func BuildResultView(t Test, a Attempt) ResultView {
	v := ResultView{
		AttemptID:   a.ID,
		TestID:      a.TestID,
		Ordinal:     a.Ordinal,
		SubmittedAt: a.SubmittedAt,
	}
	if !t.ShowResults {
		v.Status = ResultStatusSubmitted
		return v
	}
	if a.Verdict == VerdictPending {
		v.Status = ResultStatusAwaiting
		return v
	}

	v.Status = ResultStatusGraded
	verdict := a.Verdict
	v.Verdict = &verdict
	score := a.Score
	v.Score = &score
	pct := FormatPercentage(a.Percentage)
	v.Percentage = &pct
	v.RetakeOffered = RetakeOffered(a)

	keys := make(map[string][]string, len(t.Questions))
	for _, q := range t.Questions {
		keys[q.ID] = q.AnswerKey
	}
	for _, it := range a.Items {
		iv := ItemView{
			QuestionID: it.QuestionID,
			Correct:    it.Correct,
			Earned:     it.Earned,
			Max:        it.Max,
		}
		if !it.Correct {
			iv.CorrectAnswer = keys[it.QuestionID]
		}
		v.Items = append(v.Items, iv)
	}
	return v
}

// FormatPercentage renders a stored full-precision percentage with one
// decimal place for display.
func FormatPercentage(p float64) string {
	return strconv.FormatFloat(p, 'f', 1, 64)
}
