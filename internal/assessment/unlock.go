package assessment

// Unlocked decides whether a student may begin a test at all. Offline
// courses never unlock through this path: they have no lesson tracking
// and no learning-page tests. Online courses unlock only at exactly
// 100% progress; 99% gates the same as 0%.
//
// Pure predicate, re-evaluated on every access. A progress regression
// (data correction) correctly re-locks the test.
func Unlocked(courseOnline bool, progressPercent int) bool {
	return courseOnline && progressPercent == 100
}
