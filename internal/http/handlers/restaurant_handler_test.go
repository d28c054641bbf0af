package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/BattermanZ/Gastropath/internal/domain"
)

func init() { gin.SetMode(gin.TestMode) }

type stubIngestor struct {
	fn func(ctx context.Context, rawURL string) (*domain.IngestionResult, error)
}

func (s *stubIngestor) Ingest(ctx context.Context, rawURL string) (*domain.IngestionResult, error) {
	return s.fn(ctx, rawURL)
}

func newIngestRouter(ing Ingestor) *gin.Engine {
	r := gin.New()
	h := New(ing, nil)
	r.POST("/add_restaurant", h.AddRestaurant)
	return r
}

func postJSON(r http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAddRestaurant_CreatedReturns201(t *testing.T) {
	ing := &stubIngestor{fn: func(ctx context.Context, rawURL string) (*domain.IngestionResult, error) {
		if rawURL != "https://maps.app.goo.gl/abc" {
			t.Errorf("rawURL = %q", rawURL)
		}
		return &domain.IngestionResult{
			RecordID: "page-1",
			Created:  true,
			Record:   domain.RestaurantRecord{Name: "Chez Panisse"},
		}, nil
	}}

	w := postJSON(newIngestRouter(ing), "/add_restaurant", `{"url":"https://maps.app.goo.gl/abc"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body=%s", w.Code, w.Body.String())
	}
	var resp AddRestaurantResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if resp.Status != "success" || resp.RecordID != "page-1" || !resp.Created || resp.Name != "Chez Panisse" {
		t.Errorf("response = %+v", resp)
	}
}

func TestAddRestaurant_UpdatedReturns200(t *testing.T) {
	ing := &stubIngestor{fn: func(ctx context.Context, rawURL string) (*domain.IngestionResult, error) {
		return &domain.IngestionResult{RecordID: "page-1", Created: false}, nil
	}}

	w := postJSON(newIngestRouter(ing), "/add_restaurant", `{"url":"https://maps.app.goo.gl/abc"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestAddRestaurant_MissingURLReturns400(t *testing.T) {
	called := false
	ing := &stubIngestor{fn: func(ctx context.Context, rawURL string) (*domain.IngestionResult, error) {
		called = true
		return nil, nil
	}}

	for _, body := range []string{`{}`, `{"url":""}`, `not json`} {
		w := postJSON(newIngestRouter(ing), "/add_restaurant", body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, w.Code)
		}
	}
	if called {
		t.Error("pipeline must not run for an invalid body")
	}
}

func TestAddRestaurant_FailureKindStatusMapping(t *testing.T) {
	cases := []struct {
		kind       domain.FailureKind
		wantStatus int
	}{
		{domain.KindInvalidURL, http.StatusBadRequest},
		{domain.KindResolutionFailed, http.StatusBadRequest},
		{domain.KindPlaceNotFound, http.StatusBadRequest},
		{domain.KindRateLimited, http.StatusTooManyRequests},
		{domain.KindProviderError, http.StatusBadGateway},
		{domain.KindImagePublishFailed, http.StatusBadGateway},
		{domain.KindTimeout, http.StatusGatewayTimeout},
		{domain.KindSchemaMismatch, http.StatusInternalServerError},
		{domain.KindStoreUnavailable, http.StatusInternalServerError},
		{domain.KindStoreWriteFailed, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			ing := &stubIngestor{fn: func(ctx context.Context, rawURL string) (*domain.IngestionResult, error) {
				return nil, domain.Fail(tc.kind, "test", "synthetic failure")
			}}

			w := postJSON(newIngestRouter(ing), "/add_restaurant", `{"url":"https://maps.app.goo.gl/abc"}`)
			if w.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			var resp ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if resp.Code != string(tc.kind) {
				t.Errorf("code = %q, want %q", resp.Code, tc.kind)
			}
			if strings.Contains(resp.Message, "synthetic") {
				t.Error("provider detail must not leak into the response")
			}
		})
	}
}
