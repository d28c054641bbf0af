// Restaurant ingestion HTTP handlers.
//
// This file exposes the ingestion endpoint:
//   - POST /add_restaurant  (submit a google maps url)
//
// Handlers are transport-thin: they validate input, call the ingestion
// service, and translate the result (or the failure kind) into an HTTP
// response.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/BattermanZ/Gastropath/internal/domain"
	"github.com/BattermanZ/Gastropath/internal/http/middleware"
)

// Ingestor runs the ingestion pipeline for one submitted URL.
//
// Implementations must be safe for concurrent use and honor the provided
// context for cancellation and timeouts.
type Ingestor interface {
	Ingest(ctx context.Context, rawURL string) (*domain.IngestionResult, error)
}

// Handlers groups the HTTP endpoints of the service.
type Handlers struct {
	ingestor Ingestor
	journal  JournalReader
}

// New constructs a Handlers instance bound to the given services. journal
// may be nil when the ingestion journal is disabled.
func New(ingestor Ingestor, journal JournalReader) *Handlers {
	return &Handlers{ingestor: ingestor, journal: journal}
}

// AddRestaurantRequest is the JSON payload for submitting a restaurant.
type AddRestaurantRequest struct {
	// URL is a google maps share link (short or long form).
	URL string `json:"url" binding:"required"`
}

// AddRestaurantResponse reports the created or updated record.
type AddRestaurantResponse struct {
	Status   string `json:"status"`
	RecordID string `json:"record_id"`
	Name     string `json:"name"`
	Created  bool   `json:"created"`
}

// AddRestaurant handles POST /add_restaurant. It runs the full ingestion
// pipeline and answers 201 when a new record was created, 200 when an
// existing record was refreshed.
func (h *Handlers) AddRestaurant(c *gin.Context) {
	var req AddRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, `body must be {"url": "<google maps url>"}`)
		return
	}

	res, err := h.ingestor.Ingest(c.Request.Context(), req.URL)
	if err != nil {
		kind := domain.KindOf(err)
		middleware.LoggerFrom(c).Warn().
			Err(err).
			Str("kind", string(kind)).
			Msg("ingestion failed")
		fail(c, statusForKind(kind), string(kind), messageForKind(kind))
		return
	}

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	ok(c, status, AddRestaurantResponse{
		Status:   "success",
		RecordID: res.RecordID,
		Name:     res.Record.Name,
		Created:  res.Created,
	})
}
