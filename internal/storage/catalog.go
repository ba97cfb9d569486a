package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/s/campus/internal/docstore"
	"github.com/s/campus/internal/logger"
	"github.com/s/campus/internal/models"
)

// CourseCache is an optional read-through cache in front of the catalog.
type CourseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
}

const catalogAllKey = "cursos:all"

func courseCacheKey(id string) string { return "cursos:" + id }

// Catalog reads the unsharded course collection.
type Catalog struct {
	store docstore.Store
	cache CourseCache
	log   *logger.Logger
}

// NewCatalog accepts a nil cache.
func NewCatalog(store docstore.Store, cache CourseCache, log *logger.Logger) *Catalog {
	return &Catalog{store: store, cache: cache, log: log.With("component", "Catalog")}
}

func (c *Catalog) ListAll(ctx context.Context) ([]models.Course, error) {
	var cached []models.Course
	if c.fromCache(ctx, catalogAllKey, &cached) {
		return cached, nil
	}

	entries, err := c.store.List(ctx, CollectionCourses)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	courses := make([]models.Course, 0, len(entries))
	for _, e := range entries {
		course, err := decodeCourse(e.ID, e.Doc)
		if err != nil {
			c.log.Warn("skipping malformed course", "id", e.ID, "error", err)
			continue
		}
		courses = append(courses, *course)
	}
	c.toCache(ctx, catalogAllKey, courses)
	return courses, nil
}

// GetByID returns nil, nil for an unknown course.
func (c *Catalog) GetByID(ctx context.Context, id string) (*models.Course, error) {
	if id == "" {
		return nil, nil
	}
	var cached models.Course
	if c.fromCache(ctx, courseCacheKey(id), &cached) {
		return &cached, nil
	}

	doc, err := c.store.Get(ctx, CollectionCourses, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get course %s: %w", id, err)
	}
	course, err := decodeCourse(id, doc)
	if err != nil {
		return nil, err
	}
	c.toCache(ctx, courseCacheKey(id), course)
	return course, nil
}

// Save replaces the course document and drops the cached copies.
func (c *Catalog) Save(ctx context.Context, course models.Course) error {
	if err := docstore.ValidateSegment(course.ID); err != nil {
		return fmt.Errorf("course id: %w", err)
	}
	doc, err := docstore.EncodeDocument(course)
	if err != nil {
		return err
	}
	if err := c.store.Put(ctx, CollectionCourses, course.ID, doc); err != nil {
		return fmt.Errorf("save course %s: %w", course.ID, err)
	}
	if c.cache != nil {
		if err := c.cache.Delete(ctx, catalogAllKey, courseCacheKey(course.ID)); err != nil {
			c.log.Warn("course cache invalidation failed", "id", course.ID, "error", err)
		}
	}
	return nil
}

func decodeCourse(id string, doc docstore.Document) (*models.Course, error) {
	var course models.Course
	if err := docstore.Decode(doc, &course); err != nil {
		return nil, fmt.Errorf("course %s: %w", id, err)
	}
	if course.ID == "" {
		course.ID = id
	}
	return &course, nil
}

func (c *Catalog) fromCache(ctx context.Context, key string, dst any) bool {
	if c.cache == nil {
		return false
	}
	raw, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.log.Warn("course cache read failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		c.log.Warn("course cache entry unreadable", "key", key, "error", err)
		return false
	}
	return true
}

func (c *Catalog) toCache(ctx context.Context, key string, v any) {
	if c.cache == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw); err != nil {
		c.log.Warn("course cache write failed", "key", key, "error", err)
	}
}
