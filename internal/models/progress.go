package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LessonState is the per-lesson completion record inside progreso.<course>.byLesson.
type LessonState struct {
	VideoEnded  bool       `json:"videoEnded,omitempty"`
	ExSubmitted bool       `json:"exSubmitted,omitempty"`
	Completed   bool       `json:"completed,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Done reports whether any completion signal is set.
func (s LessonState) Done() bool {
	return s.VideoEnded || s.ExSubmitted || s.Completed
}

// CourseProgress is the value stored at progreso.<courseId>.
type CourseProgress struct {
	ByLesson map[string]LessonState `json:"byLesson"`
}

// LessonPatch is a partial LessonState. Nil fields are left untouched.
type LessonPatch struct {
	VideoEnded  *bool `json:"videoEnded"`
	ExSubmitted *bool `json:"exSubmitted"`
	Completed   *bool `json:"completed"`
}

// Signals reports whether the patch sets any completion flag to true.
func (p LessonPatch) Signals() bool {
	return isTrue(p.VideoEnded) || isTrue(p.ExSubmitted) || isTrue(p.Completed)
}

func isTrue(b *bool) bool { return b != nil && *b }

var ErrInvalidLessonKey = errors.New("invalid lesson key")

const keySep = "::"

// subpartAliases maps historical subpart spellings to their canonical form.
var subpartAliases = map[string]string{
	"closing-course": "closing",
	"closingcourse":  "closing",
	"closing_course": "closing",
}

// LessonKey identifies a lesson inside a course: unitX::lessonY[::subpart].
type LessonKey struct {
	Unit    int
	Lesson  int
	Subpart string
}

// ParseLessonKey parses and normalizes a composite key. Legacy subpart spellings
// collapse to their canonical form.
func ParseLessonKey(raw string) (LessonKey, error) {
	parts := strings.Split(strings.ToLower(strings.TrimSpace(raw)), keySep)
	if len(parts) < 2 {
		return LessonKey{}, fmt.Errorf("%w: %q", ErrInvalidLessonKey, raw)
	}
	unit, ok := parseIndex(parts[0], "unit")
	if !ok {
		return LessonKey{}, fmt.Errorf("%w: %q", ErrInvalidLessonKey, raw)
	}
	lesson, ok := parseIndex(parts[1], "lesson")
	if !ok {
		return LessonKey{}, fmt.Errorf("%w: %q", ErrInvalidLessonKey, raw)
	}

	key := LessonKey{Unit: unit, Lesson: lesson}
	if len(parts) > 2 {
		sub := make([]string, 0, len(parts)-2)
		for _, p := range parts[2:] {
			if p = strings.TrimSpace(p); p != "" {
				sub = append(sub, p)
			}
		}
		key.Subpart = normalizeSubpart(strings.Join(sub, keySep))
	}
	return key, nil
}

func parseIndex(part, prefix string) (int, bool) {
	part = strings.TrimSpace(part)
	if !strings.HasPrefix(part, prefix) {
		return 0, false
	}
	digits := strings.TrimPrefix(part, prefix)
	if digits == "" || strings.IndexFunc(digits, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}

func normalizeSubpart(s string) string {
	if canon, ok := subpartAliases[s]; ok {
		return canon
	}
	return s
}

// Base drops the subpart.
func (k LessonKey) Base() LessonKey {
	return LessonKey{Unit: k.Unit, Lesson: k.Lesson}
}

func (k LessonKey) String() string {
	s := "unit" + strconv.Itoa(k.Unit) + keySep + "lesson" + strconv.Itoa(k.Lesson)
	if k.Subpart != "" {
		s += keySep + k.Subpart
	}
	return s
}

// SameLesson reports whether both keys refer to the same logical lesson.
func (k LessonKey) SameLesson(other LessonKey) bool {
	return k.Base() == other.Base()
}
