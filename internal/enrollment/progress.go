package enrollment

import "math"

// Percent computes the 0-100 completion percentage for an enrollment
// given the resolved total lesson count. Fallback order:
//
//  1. lesson-level data with a known total (authoritative, even when a
//     stored backend percentage disagrees)
//  2. the backend-reported progress hint
//  3. zero
//
// Pure and idempotent; monotonic in the completed count for a fixed
// total.
func Percent(e Enrollment, totalLessons int) int {
	if totalLessons > 0 && e.HasLessonData() {
		p := math.Round(100 * float64(e.CompletedCount()) / float64(totalLessons))
		return clamp(int(p))
	}
	if e.ProgressHint != nil && *e.ProgressHint >= 0 {
		return clamp(*e.ProgressHint)
	}
	return 0
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
