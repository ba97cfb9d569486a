package storage

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/s/campus/internal/docstore"
	"github.com/s/campus/internal/logger"
	"github.com/s/campus/internal/models"
)

// Ledger records per-lesson completion inside each user's entry.
type Ledger struct {
	dir *Directory
	log *logger.Logger
	now func() time.Time
}

func NewLedger(dir *Directory, log *logger.Logger) *Ledger {
	return &Ledger{dir: dir, log: log.With("component", "Ledger"), now: time.Now}
}

// RecordLessonState merges patch into progreso.<courseID>.byLesson.<key>. Each
// field is written by its own path, so other lessons and other fields of the
// same lesson are never rewritten. Completion flags are only ever set to true:
// a false in the patch is ignored. The key is stored in its canonical form.
func (l *Ledger) RecordLessonState(ctx context.Context, uid, courseID, lessonKey string, patch models.LessonPatch) (models.LessonKey, error) {
	key, err := models.ParseLessonKey(lessonKey)
	if err != nil {
		return models.LessonKey{}, err
	}
	if err := docstore.ValidateSegment(courseID); err != nil {
		return models.LessonKey{}, fmt.Errorf("course id: %w", err)
	}
	if err := docstore.ValidateSegment(key.String()); err != nil {
		return models.LessonKey{}, fmt.Errorf("lesson key: %w", err)
	}
	p, err := l.dir.locate(ctx, uid)
	if err != nil {
		return models.LessonKey{}, err
	}

	base := "progreso." + courseID + ".byLesson." + key.String() + "."
	now := l.now().UTC()
	fields := map[string]any{base + "updatedAt": now}
	if patch.VideoEnded != nil && *patch.VideoEnded {
		fields[base+"videoEnded"] = true
	}
	if patch.ExSubmitted != nil && *patch.ExSubmitted {
		fields[base+"exSubmitted"] = true
	}
	if patch.Completed != nil && *patch.Completed {
		fields[base+"completed"] = true
	}
	if patch.Signals() {
		fields[base+"completedAt"] = now
	}

	if err := l.dir.batches.Update(ctx, p.Location, fields); err != nil {
		return models.LessonKey{}, fmt.Errorf("record %s/%s for %s: %w", courseID, key, uid, err)
	}
	l.log.Debug("lesson state recorded", "uid", uid, "course", courseID, "lesson", key.String(), "done", patch.Signals())
	return key, nil
}

// ReadCourseProgress returns the raw byLesson map, empty when nothing was recorded.
func (l *Ledger) ReadCourseProgress(ctx context.Context, uid, courseID string) (map[string]models.LessonState, error) {
	p, err := l.dir.locate(ctx, uid)
	if err != nil {
		return nil, err
	}
	return lessonsOf(&p.User, courseID), nil
}

// RecentActivity lists completed lessons across all courses, newest first. Keys
// are reported in canonical form, once per lesson key, with the latest completedAt.
func (l *Ledger) RecentActivity(ctx context.Context, uid string, limit int) ([]models.Activity, error) {
	p, err := l.dir.locate(ctx, uid)
	if err != nil {
		return nil, err
	}

	type feedKey struct {
		course string
		lesson models.LessonKey
	}
	latest := map[feedKey]models.Activity{}
	for courseID, cp := range p.Progress {
		for raw, state := range cp.ByLesson {
			if !state.Done() || state.CompletedAt == nil {
				continue
			}
			key, err := models.ParseLessonKey(raw)
			if err != nil {
				continue
			}
			// legacy and canonical spellings of one key share an entry
			fk := feedKey{course: courseID, lesson: key}
			if prev, ok := latest[fk]; ok && !state.CompletedAt.After(prev.CompletedAt) {
				continue
			}
			latest[fk] = models.Activity{CourseID: courseID, LessonKey: key.String(), CompletedAt: *state.CompletedAt}
		}
	}

	out := make([]models.Activity, 0, len(latest))
	for _, a := range latest {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CompletedAt.Equal(out[j].CompletedAt) {
			return out[i].CompletedAt.After(out[j].CompletedAt)
		}
		if out[i].CourseID != out[j].CourseID {
			return out[i].CourseID < out[j].CourseID
		}
		return out[i].LessonKey < out[j].LessonKey
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func lessonsOf(u *models.User, courseID string) map[string]models.LessonState {
	out := map[string]models.LessonState{}
	cp, ok := u.Progress[courseID]
	if !ok {
		return out
	}
	for k, v := range cp.ByLesson {
		out[k] = v
	}
	return out
}
