package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s/campus/internal/docstore"
	"github.com/s/campus/internal/logger"
	"github.com/s/campus/internal/models"
	"github.com/s/campus/internal/storage"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	a := New(docstore.NewMemoryStore(), nil, storage.DefaultBatchConfig(), logger.Nop())
	ctx := context.Background()
	require.NoError(t, a.Catalog.Save(ctx, models.Course{
		ID: "C1", Title: "Inglés",
		Units: []models.Unit{
			{Lessons: make([]models.Lesson, 2)},
			{Lessons: make([]models.Lesson, 2)},
		},
	}))
	_, err := a.Directory.Provision(ctx, models.Identity{UID: "u1", Email: "u1@campus.test"}, models.DefaultRole)
	require.NoError(t, err)
	return a
}

func yes() *bool { b := true; return &b }

func TestDashboard(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	require.NoError(t, a.Enrollment.GrantCourseAccess(ctx, "u1", "C1"))

	_, err := a.Ledger.RecordLessonState(ctx, "u1", "C1", "unit0::lesson0", models.LessonPatch{Completed: yes()})
	require.NoError(t, err)
	_, err = a.Ledger.RecordLessonState(ctx, "u1", "C1", "unit0::lesson1::closing-course", models.LessonPatch{VideoEnded: yes()})
	require.NoError(t, err)

	rows, err := a.Dashboard(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "C1", rows[0].Course.ID)
	assert.Equal(t, 4, rows[0].TotalLessons)
	assert.Equal(t, 2, rows[0].CompletedCount)
	assert.Equal(t, 50, rows[0].ProgressPercent)
	assert.Equal(t, "unit1::lesson0", rows[0].NextLesson)
}

func TestDashboard_UnknownUser(t *testing.T) {
	a := newTestApp(t)
	_, err := a.Dashboard(context.Background(), "ghost")
	assert.ErrorIs(t, err, storage.ErrUserNotFound)
}

func TestRecordLesson_ReturnsFreshStats(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	view, err := a.RecordLesson(ctx, "u1", "C1", "UNIT0::LESSON0", models.LessonPatch{ExSubmitted: yes()})
	require.NoError(t, err)
	assert.Equal(t, 1, view.CompletedCount)
	assert.Equal(t, 25, view.ProgressPercent)
	assert.Contains(t, view.ByLesson, "unit0::lesson0")
	assert.Equal(t, "unit0::lesson1", view.NextLesson)

	_, err = a.RecordLesson(ctx, "u1", "C1", "bogus", models.LessonPatch{})
	assert.ErrorIs(t, err, models.ErrInvalidLessonKey)
}

func TestCourseProgress_UnknownCourseFallsBack(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	_, err := a.Ledger.RecordLessonState(ctx, "u1", "X", "unit0::lesson0", models.LessonPatch{Completed: yes()})
	require.NoError(t, err)
	_, err = a.Ledger.RecordLessonState(ctx, "u1", "X", "unit0::lesson1", models.LessonPatch{})
	require.NoError(t, err)

	view, err := a.CourseProgress(ctx, "u1", "X")
	require.NoError(t, err)
	assert.Equal(t, 2, view.TotalLessons)
	assert.Equal(t, 50, view.ProgressPercent)
	assert.Empty(t, view.NextLesson)
}
