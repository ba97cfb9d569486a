// Package app holds the long-lived store components built once at boot and
// shared by every request handler.
package app

import (
	"context"

	"github.com/s/campus/internal/docstore"
	"github.com/s/campus/internal/logger"
	"github.com/s/campus/internal/models"
	"github.com/s/campus/internal/progress"
	"github.com/s/campus/internal/storage"
)

type App struct {
	Store      docstore.Store
	Directory  *storage.Directory
	Ledger     *storage.Ledger
	Enrollment *storage.Enrollment
	Catalog    *storage.Catalog
	Log        *logger.Logger
}

// New wires the components over one document store. cache may be nil.
func New(store docstore.Store, cache storage.CourseCache, batches storage.BatchConfig, log *logger.Logger) *App {
	users := storage.NewBatchStore[models.User](store, batches, log)
	dir := storage.NewDirectory(users, log)
	catalog := storage.NewCatalog(store, cache, log)
	return &App{
		Store:      store,
		Directory:  dir,
		Ledger:     storage.NewLedger(dir, log),
		Enrollment: storage.NewEnrollment(dir, catalog, log),
		Catalog:    catalog,
		Log:        log,
	}
}

func (a *App) Close(ctx context.Context) error {
	return a.Store.Close(ctx)
}

// CourseSummary is one row of the student dashboard.
type CourseSummary struct {
	Course models.Course `json:"course"`
	progress.Stats
	NextLesson string `json:"nextLesson,omitempty"`
}

// CourseProgressView is the progress of one user in one course.
type CourseProgressView struct {
	CourseID string                        `json:"courseId"`
	ByLesson map[string]models.LessonState `json:"byLesson"`
	progress.Stats
	NextLesson string `json:"nextLesson,omitempty"`
}

// Dashboard summarizes every acquired course. Courses missing from the catalog
// are logged and left out.
func (a *App) Dashboard(ctx context.Context, uid string) ([]CourseSummary, error) {
	p, err := a.Directory.ResolveByUID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, storage.ErrUserNotFound
	}

	out := make([]CourseSummary, 0, len(p.AcquiredCourses))
	for _, courseID := range p.AcquiredCourses {
		course, err := a.Catalog.GetByID(ctx, courseID)
		if err != nil {
			return nil, err
		}
		if course == nil {
			a.Log.Warn("acquired course missing from catalog", "uid", uid, "course", courseID)
			continue
		}
		var byLesson map[string]models.LessonState
		if cp, ok := p.Progress[courseID]; ok {
			byLesson = cp.ByLesson
		}
		out = append(out, CourseSummary{
			Course:     *course,
			Stats:      progress.Compute(byLesson, course),
			NextLesson: nextLesson(byLesson, course),
		})
	}
	return out, nil
}

// CourseProgress reads the stored lesson states and derives the stats. An
// unknown course still reports progress, counted against the recorded keys.
func (a *App) CourseProgress(ctx context.Context, uid, courseID string) (*CourseProgressView, error) {
	byLesson, err := a.Ledger.ReadCourseProgress(ctx, uid, courseID)
	if err != nil {
		return nil, err
	}
	course, err := a.Catalog.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return &CourseProgressView{
		CourseID:   courseID,
		ByLesson:   byLesson,
		Stats:      progress.Compute(byLesson, course),
		NextLesson: nextLesson(byLesson, course),
	}, nil
}

// RecordLesson stores a lesson patch and returns the refreshed progress.
func (a *App) RecordLesson(ctx context.Context, uid, courseID, lessonKey string, patch models.LessonPatch) (*CourseProgressView, error) {
	if _, err := a.Ledger.RecordLessonState(ctx, uid, courseID, lessonKey, patch); err != nil {
		return nil, err
	}
	return a.CourseProgress(ctx, uid, courseID)
}

func nextLesson(byLesson map[string]models.LessonState, course *models.Course) string {
	key, ok := progress.NextLesson(byLesson, course)
	if !ok {
		return ""
	}
	return key.String()
}
