package storage

import (
	"context"
	"fmt"

	"github.com/s/campus/internal/logger"
)

// Enrollment grants course access by set-union into cursosAdquiridos.
type Enrollment struct {
	dir     *Directory
	catalog *Catalog
	log     *logger.Logger
}

func NewEnrollment(dir *Directory, catalog *Catalog, log *logger.Logger) *Enrollment {
	return &Enrollment{dir: dir, catalog: catalog, log: log.With("component", "Enrollment")}
}

// GrantCourseAccess is idempotent: granting a course the user already holds is a no-op.
func (e *Enrollment) GrantCourseAccess(ctx context.Context, uid, courseID string) error {
	p, err := e.dir.locate(ctx, uid)
	if err != nil {
		return err
	}
	return e.grant(ctx, p, courseID)
}

// GrantByEmail resolves the user by email first; used by the admin enrollment screen.
func (e *Enrollment) GrantByEmail(ctx context.Context, email, courseID string) (*Profile, error) {
	p, err := e.dir.ResolveByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%s: %w", email, ErrUserNotFound)
	}
	if err := e.grant(ctx, p, courseID); err != nil {
		return nil, err
	}
	return p, nil
}

func (e *Enrollment) grant(ctx context.Context, p *Profile, courseID string) error {
	course, err := e.catalog.GetByID(ctx, courseID)
	if err != nil {
		return err
	}
	if course == nil {
		return fmt.Errorf("%s: %w", courseID, ErrCourseNotFound)
	}
	if p.HasCourse(courseID) {
		return nil
	}
	if err := e.dir.batches.AddToSet(ctx, p.Location, "cursosAdquiridos", courseID); err != nil {
		return fmt.Errorf("grant %s to %s: %w", courseID, p.UID, err)
	}
	e.log.Info("course granted", "uid", p.UID, "course", courseID)
	return nil
}
