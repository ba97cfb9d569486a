package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/s/campus/internal/docstore"
	"github.com/s/campus/internal/logger"
	"github.com/s/campus/internal/models"
)

type fixture struct {
	store      *docstore.MemoryStore
	batches    *BatchStore[models.User]
	dir        *Directory
	ledger     *Ledger
	catalog    *Catalog
	enrollment *Enrollment
}

func newFixture(t *testing.T, perBatch, batches int) *fixture {
	t.Helper()
	log := logger.Nop()
	store := docstore.NewMemoryStore()
	cfg := DefaultBatchConfig()
	cfg.MaxPerBatch = perBatch
	cfg.MaxBatches = batches

	f := &fixture{store: store}
	f.batches = NewBatchStore[models.User](store, cfg, log)
	f.dir = NewDirectory(f.batches, log)
	f.ledger = NewLedger(f.dir, log)
	f.catalog = NewCatalog(store, nil, log)
	f.enrollment = NewEnrollment(f.dir, f.catalog, log)
	return f
}

func (f *fixture) provision(t *testing.T, uid, email string) *Profile {
	t.Helper()
	p, err := f.dir.Provision(context.Background(), models.Identity{UID: uid, Email: email}, models.DefaultRole)
	require.NoError(t, err)
	return p
}

func (f *fixture) saveCourse(t *testing.T, id string, unitSizes ...int) {
	t.Helper()
	c := models.Course{ID: id, Title: "Curso " + id}
	for _, n := range unitSizes {
		c.Units = append(c.Units, models.Unit{Lessons: make([]models.Lesson, n)})
	}
	require.NoError(t, f.catalog.Save(context.Background(), c))
}

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func boolPtr(b bool) *bool { return &b }
