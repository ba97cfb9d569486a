package database

import (
	"gorm.io/gorm"

	"github.com/s/campus/internal/docstore"
)

func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&docstore.DocumentRow{},
	)
}
