package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrantCourseAccess_IsIdempotent(t *testing.T) {
	f := newFixture(t, 5, 2)
	ctx := context.Background()
	f.saveCourse(t, "C1", 2, 2)
	f.provision(t, "g-1", "a@campus.test")

	require.NoError(t, f.enrollment.GrantCourseAccess(ctx, "g-1", "C1"))
	require.NoError(t, f.enrollment.GrantCourseAccess(ctx, "g-1", "C1"))

	p, err := f.dir.ResolveByUID(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"C1"}, p.AcquiredCourses)
}

func TestGrantCourseAccess_UnknownCourseOrUser(t *testing.T) {
	f := newFixture(t, 5, 2)
	ctx := context.Background()
	f.saveCourse(t, "C1", 1)
	f.provision(t, "g-1", "a@campus.test")

	assert.ErrorIs(t, f.enrollment.GrantCourseAccess(ctx, "g-1", "C404"), ErrCourseNotFound)
	assert.ErrorIs(t, f.enrollment.GrantCourseAccess(ctx, "nobody", "C1"), ErrUserNotFound)
}

func TestGrantByEmail(t *testing.T) {
	f := newFixture(t, 5, 2)
	ctx := context.Background()
	f.saveCourse(t, "C1", 1)
	f.saveCourse(t, "C2", 1)
	f.provision(t, "g-1", "ana@campus.test")

	p, err := f.enrollment.GrantByEmail(ctx, " ANA@campus.test", "C2")
	require.NoError(t, err)
	assert.Equal(t, "g-1", p.UID)
	require.NoError(t, f.enrollment.GrantCourseAccess(ctx, "g-1", "C1"))

	again, err := f.dir.ResolveByUID(ctx, "g-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"C1", "C2"}, again.AcquiredCourses)

	_, err = f.enrollment.GrantByEmail(ctx, "ghost@campus.test", "C1")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
