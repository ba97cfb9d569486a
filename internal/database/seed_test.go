package database

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

func TestSeed_OnlyWhenEmpty(t *testing.T) {
	ctx := context.Background()
	catalog := storage.NewCatalog(docstore.NewMemoryStore(), nil, logger.Nop())

	n, err := Seed(ctx, catalog)
	require.NoError(t, err)
	assert.Equal(t, len(DemoCourses()), n)

	n, err = Seed(ctx, catalog)
	require.NoError(t, err)
	assert.Zero(t, n)

	c, err := catalog.GetByID(ctx, "ingles-a1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 5, c.TotalLessons())
}

func TestSeed_LeavesExistingCatalog(t *testing.T) {
	ctx := context.Background()
	catalog := storage.NewCatalog(docstore.NewMemoryStore(), nil, logger.Nop())
	require.NoError(t, catalog.Save(ctx, models.Course{ID: "mine", Title: "Mío"}))

	n, err := Seed(ctx, catalog)
	require.NoError(t, err)
	assert.Zero(t, n)

	all, err := catalog.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
