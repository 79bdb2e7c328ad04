package course

type Lesson struct {
	ID    string `json:"id"`
	Title string `json:"title,omitempty"`
}

// Unit is one modules[] or chapters[] entry. The two shapes are
// structurally identical; only the label differs upstream.
type Unit struct {
	ID      string   `json:"id"`
	Title   string   `json:"title,omitempty"`
	Lessons []Lesson `json:"lessons"`
}

// Structure is the raw course-structure payload as the course service
// reports it. At most one branch is authoritative; precedence is
// modules, then chapters, then the bare count (see TotalLessons).
type Structure struct {
	Modules     []Unit `json:"modules,omitempty"`
	Chapters    []Unit `json:"chapters,omitempty"`
	LessonCount *int   `json:"lesson_count,omitempty"`
}

// Empty reports whether no structural representation is present at all.
func (s Structure) Empty() bool {
	return len(s.Modules) == 0 && len(s.Chapters) == 0 && s.LessonCount == nil
}

type Course struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Online    bool      `json:"online"`
	Structure Structure `json:"structure"`
	CreatedAt int64     `json:"created_at,omitempty"`
}
