package course

// TotalLessons normalizes a structure payload to a single lesson count.
// First match wins; branches are never merged, so a course that happens
// to carry both modules and chapters is counted from modules only.
func TotalLessons(s Structure) int {
	if len(s.Modules) > 0 {
		return sumLessons(s.Modules)
	}
	if len(s.Chapters) > 0 {
		return sumLessons(s.Chapters)
	}
	if s.LessonCount != nil && *s.LessonCount > 0 {
		return *s.LessonCount
	}
	return 0
}

func sumLessons(units []Unit) int {
	n := 0
	for _, u := range units {
		n += len(u.Lessons)
	}
	return n
}
