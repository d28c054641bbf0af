// Package repo – ingestion journal repository.
//
// All functions are context-aware and accept a *gorm.DB handle. They follow
// the thin-repository approach: no business logic, only persistence and
// query composition. The journal is append-only; entries are never updated
// or deleted by the application.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BattermanZ/Gastropath/internal/domain"
)

// RecordIngestion appends one journal entry describing a finished pipeline
// run. The entry's ID and CreatedAt are assigned here.
func RecordIngestion(ctx context.Context, db *gorm.DB, e *domain.IngestionEntry) error {
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now().UTC()
	return db.WithContext(ctx).Create(e).Error
}

// CountIngestions returns the total number of journal entries.
func CountIngestions(ctx context.Context, db *gorm.DB) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Model(&domain.IngestionEntry{}).Count(&n).Error
	return n, err
}

// ListIngestionsPage returns a page of journal entries, most recent first.
func ListIngestionsPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.IngestionEntry, error) {
	var out []domain.IngestionEntry
	err := db.WithContext(ctx).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}
