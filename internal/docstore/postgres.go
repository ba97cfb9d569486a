package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DocumentRow is one document stored as jsonb.
type DocumentRow struct {
	Collection string            `gorm:"primaryKey;size:64"`
	ID         string            `gorm:"primaryKey;size:128"`
	Data       datatypes.JSONMap `gorm:"type:jsonb;not null"`
	UpdatedAt  time.Time
}

func (DocumentRow) TableName() string { return "documents" }

// PostgresStore keeps documents in a single jsonb table. Partial writes run as a
// locked read-modify-write inside one transaction, so concurrent writers to the
// same document serialize instead of overwriting each other.
type PostgresStore struct {
	db *gorm.DB
}

func NewPostgresStore(db *gorm.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (Document, error) {
	var row DocumentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
		}
		return nil, fmt.Errorf("postgres get %s/%s: %w", collection, id, err)
	}
	return Document(row.Data), nil
}

func (s *PostgresStore) List(ctx context.Context, collection string) ([]Entry, error) {
	var rows []DocumentRow
	if err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("postgres list %s: %w", collection, err)
	}
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		out = append(out, Entry{ID: r.ID, Doc: Document(r.Data)})
	}
	return out, nil
}

func (s *PostgresStore) Put(ctx context.Context, collection, id string, doc Document) error {
	row := DocumentRow{Collection: collection, ID: id, Data: datatypes.JSONMap(doc), UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection"}, {Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("postgres put %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *PostgresStore) SetFields(ctx context.Context, collection, id string, fields map[string]any) error {
	split := make(map[string][]string, len(fields))
	for path := range fields {
		segs, err := SplitPath(path)
		if err != nil {
			return err
		}
		split[path] = segs
	}
	return s.mutate(ctx, collection, id, func(doc Document) (bool, error) {
		for path, v := range fields {
			setPath(doc, split[path], v)
		}
		return len(fields) > 0, nil
	})
}

func (s *PostgresStore) ClaimField(ctx context.Context, collection, id, field string, value any) (bool, error) {
	if err := ValidateSegment(field); err != nil {
		return false, err
	}
	claimed := false
	err := s.mutate(ctx, collection, id, func(doc Document) (bool, error) {
		if _, taken := doc[field]; taken {
			return false, nil
		}
		doc[field] = value
		claimed = true
		return true, nil
	})
	return claimed, err
}

func (s *PostgresStore) AddToSet(ctx context.Context, collection, id, path string, value any) error {
	segs, err := SplitPath(path)
	if err != nil {
		return err
	}
	return s.mutate(ctx, collection, id, func(doc Document) (bool, error) {
		return addToSet(doc, segs, value), nil
	})
}

func (s *PostgresStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// mutate creates the row if needed, locks it, applies fn and writes back when fn reports a change.
func (s *PostgresStore) mutate(ctx context.Context, collection, id string, fn func(Document) (bool, error)) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seed := DocumentRow{Collection: collection, ID: id, Data: datatypes.JSONMap{}, UpdatedAt: time.Now()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
			return err
		}

		var row DocumentRow
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("collection = ? AND id = ?", collection, id).
			First(&row).Error; err != nil {
			return err
		}
		if row.Data == nil {
			row.Data = datatypes.JSONMap{}
		}

		changed, err := fn(Document(row.Data))
		if err != nil || !changed {
			return err
		}
		return tx.Model(&DocumentRow{}).
			Where("collection = ? AND id = ?", collection, id).
			Updates(map[string]interface{}{"data": row.Data, "updated_at": time.Now()}).Error
	})
	if err != nil {
		return fmt.Errorf("postgres update %s/%s: %w", collection, id, err)
	}
	return nil
}
