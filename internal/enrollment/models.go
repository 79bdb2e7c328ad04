package enrollment

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Enrollment links a student to a course and tracks completion state.
// CompletedLessonIDs is membership-only; a nil map means lesson-level
// data was not available, which matters for the progress fallback order.
type Enrollment struct {
	ID                 string              `json:"id"`
	UserID             string              `json:"user_id"`
	CourseID           string              `json:"course_id"`
	Status             Status              `json:"status"`
	CompletedLessonIDs map[string]struct{} `json:"-"`
	ProgressHint       *int                `json:"progress_hint,omitempty"` // backend-reported, fallback only
	EnrolledAt         int64               `json:"enrolled_at"`
	LastAccessAt       int64               `json:"last_access_at,omitempty"`
}

func (e Enrollment) CompletedCount() int { return len(e.CompletedLessonIDs) }

// HasLessonData reports whether lesson-level completion is known at all.
func (e Enrollment) HasLessonData() bool { return e.CompletedLessonIDs != nil }
