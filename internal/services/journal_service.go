// Package services – JournalService
//
// Read-side access to the ingestion journal, with the pagination rules the
// HTTP layer relies on (defaults for invalid page/pageSize, total count
// returned alongside the page).
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/BattermanZ/Gastropath/internal/domain"
	"github.com/BattermanZ/Gastropath/internal/repo"
)

// JournalService lists recorded ingestion runs.
type JournalService struct {
	DB *gorm.DB
}

// ListPage returns a page of journal entries, most recent first, and the
// total entry count.
func (s *JournalService) ListPage(ctx context.Context, page, pageSize int) ([]domain.IngestionEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := repo.CountIngestions(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.IngestionEntry{}, 0, nil
	}

	items, err := repo.ListIngestionsPage(ctx, s.DB, offset, pageSize)
	return items, total, err
}
