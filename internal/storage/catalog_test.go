package storage

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s/campus/internal/docstore"
	"github.com/s/campus/internal/logger"
	"github.com/s/campus/internal/models"
)

type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	hits int
}

func newMapCache() *mapCache { return &mapCache{data: map[string][]byte{}} }

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if ok {
		c.hits++
	}
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.data, k)
	}
	return nil
}

func TestCatalog_ListAndGet(t *testing.T) {
	f := newFixture(t, 5, 2)
	ctx := context.Background()
	f.saveCourse(t, "ING-A1", 3, 2)
	f.saveCourse(t, "FRA-A1", 1)

	courses, err := f.catalog.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "FRA-A1", courses[0].ID)

	c, err := f.catalog.GetByID(ctx, "ING-A1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, 5, c.TotalLessons())

	missing, err := f.catalog.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCatalog_TakesIDFromDocumentKey(t *testing.T) {
	f := newFixture(t, 5, 2)
	ctx := context.Background()
	require.NoError(t, f.store.Put(ctx, CollectionCourses, "legacy", docstore.Document{
		"titulo":   "Italiano",
		"unidades": []any{map[string]any{"lecciones": []any{"Ciao", "Grazie"}}},
	}))

	c, err := f.catalog.GetByID(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, "legacy", c.ID)
	assert.Equal(t, 2, c.TotalLessons())
}

func TestCatalog_CacheReadThroughAndInvalidation(t *testing.T) {
	store := docstore.NewMemoryStore()
	cache := newMapCache()
	cat := NewCatalog(store, cache, logger.Nop())
	ctx := context.Background()

	require.NoError(t, cat.Save(ctx, models.Course{ID: "C1", Title: "v1"}))
	_, err := cat.ListAll(ctx)
	require.NoError(t, err)
	_, err = cat.ListAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	got, err := cat.GetByID(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, "v1", got.Title)

	require.NoError(t, cat.Save(ctx, models.Course{ID: "C1", Title: "v2"}))
	got, err = cat.GetByID(ctx, "C1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Title)

	all, err := cat.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "v2", all[0].Title)
}

func TestCatalog_SaveRejectsBadID(t *testing.T) {
	f := newFixture(t, 5, 2)
	err := f.catalog.Save(context.Background(), models.Course{ID: "a.b", Title: "x"})
	assert.ErrorIs(t, err, docstore.ErrInvalidPath)
}
