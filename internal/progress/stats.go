// Package progress derives display statistics from a raw byLesson map.
// Everything here is pure: no I/O, no clocks, no errors.
package progress

import (
	"math"

	"github.com/s/campus/internal/models"
)

type Stats struct {
	TotalLessons    int `json:"totalLessons"`
	CompletedCount  int `json:"completedCount"`
	ProgressPercent int `json:"progressPercent"`
}

// Compute reconciles byLesson against the course structure.
//
// Keys are parsed and normalized first, so legacy spellings and subpart suffixes
// collapse onto one base key; malformed keys are skipped. A base key is done when
// any entry that maps to it carries a completion signal. When the course has no
// lessons (nil course or units not populated), the total falls back to the number
// of distinct base keys present in byLesson. Otherwise completed keys that point
// outside the course structure are not counted.
func Compute(byLesson map[string]models.LessonState, course *models.Course) Stats {
	done := CompletedLessons(byLesson)

	total := 0
	if course != nil {
		total = course.TotalLessons()
	}
	completed := len(done)
	if total == 0 {
		total = len(distinctBaseKeys(byLesson))
	} else {
		completed = 0
		for key := range done {
			if inCourse(course, key) {
				completed++
			}
		}
	}

	return Stats{
		TotalLessons:    total,
		CompletedCount:  completed,
		ProgressPercent: percent(completed, total),
	}
}

// CompletedLessons returns the set of base keys with any completion signal.
func CompletedLessons(byLesson map[string]models.LessonState) map[models.LessonKey]bool {
	done := map[models.LessonKey]bool{}
	for raw, state := range byLesson {
		key, err := models.ParseLessonKey(raw)
		if err != nil {
			continue
		}
		if state.Done() {
			done[key.Base()] = true
		}
	}
	return done
}

func distinctBaseKeys(byLesson map[string]models.LessonState) map[models.LessonKey]struct{} {
	seen := map[models.LessonKey]struct{}{}
	for raw := range byLesson {
		key, err := models.ParseLessonKey(raw)
		if err != nil {
			continue
		}
		seen[key.Base()] = struct{}{}
	}
	return seen
}

func inCourse(course *models.Course, key models.LessonKey) bool {
	return key.Unit < len(course.Units) && key.Lesson < len(course.Units[key.Unit].Lessons)
}

func percent(completed, total int) int {
	if total <= 0 {
		return 0
	}
	p := int(math.Round(100 * float64(completed) / float64(total)))
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

// NextLesson returns the first lesson, in course order, that is not done yet.
// ok is false when every lesson is done or the course has no lessons.
func NextLesson(byLesson map[string]models.LessonState, course *models.Course) (models.LessonKey, bool) {
	if course == nil {
		return models.LessonKey{}, false
	}
	done := CompletedLessons(byLesson)
	for u, unit := range course.Units {
		for l := range unit.Lessons {
			key := models.LessonKey{Unit: u, Lesson: l}
			if !done[key] {
				return key, true
			}
		}
	}
	return models.LessonKey{}, false
}
