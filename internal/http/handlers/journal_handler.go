// Ingestion journal HTTP handlers.
//
// This file exposes the read-only audit trail:
//   - GET /api/v1/ingestions  (paginated, most recent first)
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BattermanZ/Gastropath/internal/domain"
	"github.com/BattermanZ/Gastropath/internal/utils"
)

// JournalReader lists recorded ingestion runs.
type JournalReader interface {
	// ListPage returns a page of journal entries and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.IngestionEntry, int64, error)
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListIngestionsResponse wraps a page of journal entries.
type ListIngestionsResponse struct {
	Ingestions []domain.IngestionEntry `json:"ingestions"`
	Pagination Pagination              `json:"pagination"`
}

// clampPagination parses and bounds page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}

// ListIngestions handles GET /api/v1/ingestions.
func (h *Handlers) ListIngestions(c *gin.Context) {
	if h.journal == nil {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "ingestion journal is disabled")
		return
	}

	page, pageSize := clampPagination(c)
	items, total, err := h.journal.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list ingestions")
		return
	}
	if items == nil {
		items = []domain.IngestionEntry{}
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListIngestionsResponse{
		Ingestions: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}
