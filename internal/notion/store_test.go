package notion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/BattermanZ/Gastropath/internal/domain"
)

const dbID = "db-123"

// schemaBody is the database metadata response matching expectedSchema.
const schemaBody = `{"properties":{
	"Name":{"type":"title"},
	"City":{"type":"rich_text"},
	"Country":{"type":"rich_text"},
	"Cuisine Type":{"type":"rich_text"},
	"Google Maps":{"type":"url"},
	"Price range":{"type":"select"},
	"Website":{"type":"url"}}}`

func testRecord() domain.RestaurantRecord {
	return domain.RestaurantRecord{
		Name:          "Chez Panisse",
		City:          "Berkeley",
		Country:       "United States",
		CuisineType:   "Californian",
		GoogleMapsURL: "https://www.google.com/maps/place/?ftid=0x1:0x2",
		PriceRange:    domain.PriceHigh,
		Website:       "https://chezpanisse.com",
		ImageURL:      "https://res.cloudinary.com/demo/abc.jpg",
	}
}

func TestFindByURL_Hit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/databases/"+dbID+"/query" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Notion-Version"); got != apiVersion {
			t.Errorf("Notion-Version = %q", got)
		}
		var q struct {
			Filter struct {
				Property string `json:"property"`
				URL      struct {
					Equals string `json:"equals"`
				} `json:"url"`
			} `json:"filter"`
		}
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			t.Fatalf("decoding query: %v", err)
		}
		if q.Filter.Property != "Google Maps" {
			t.Errorf("filter property = %q", q.Filter.Property)
		}
		if q.Filter.URL.Equals != "https://maps.example/p" {
			t.Errorf("filter equals = %q", q.Filter.URL.Equals)
		}
		fmt.Fprint(w, `{"results":[{"id":"page-1"}]}`)
	}))
	defer srv.Close()

	s := New("secret", dbID, time.Second, WithBaseURL(srv.URL))
	id, err := s.FindByURL(context.Background(), "https://maps.example/p")
	if err != nil {
		t.Fatalf("FindByURL: %v", err)
	}
	if id != "page-1" {
		t.Fatalf("id = %q", id)
	}
}

func TestFindByURL_Miss(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"results":[]}`)
	}))
	defer srv.Close()

	s := New("secret", dbID, time.Second, WithBaseURL(srv.URL))
	id, err := s.FindByURL(context.Background(), "https://maps.example/none")
	if err != nil {
		t.Fatalf("FindByURL: %v", err)
	}
	if id != "" {
		t.Fatalf("id = %q, want empty", id)
	}
}

func TestUpsert_CreatesPageWithParentIconCover(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/databases/"+dbID:
			fmt.Fprint(w, schemaBody)
		case r.Method == http.MethodPost && r.URL.Path == "/v1/pages":
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			parent, ok := body["parent"].(map[string]any)
			if !ok || parent["database_id"] != dbID {
				t.Errorf("parent = %v", body["parent"])
			}
			if _, ok := body["icon"]; !ok {
				t.Error("create must set an icon")
			}
			cover, ok := body["cover"].(map[string]any)
			if !ok {
				t.Fatal("cover missing")
			}
			ext := cover["external"].(map[string]any)
			if ext["url"] != "https://res.cloudinary.com/demo/abc.jpg" {
				t.Errorf("cover url = %v", ext["url"])
			}
			fmt.Fprint(w, `{"id":"page-new"}`)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := New("secret", dbID, time.Second, WithBaseURL(srv.URL))
	id, err := s.Upsert(context.Background(), testRecord(), "")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if id != "page-new" {
		t.Fatalf("id = %q", id)
	}
}

func TestUpsert_PatchesExistingPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/databases/"+dbID:
			fmt.Fprint(w, schemaBody)
		case r.Method == http.MethodPatch && r.URL.Path == "/v1/pages/page-7":
			var body map[string]any
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decoding body: %v", err)
			}
			if _, ok := body["parent"]; ok {
				t.Error("update must not set a parent")
			}
			if _, ok := body["icon"]; ok {
				t.Error("update must not set an icon")
			}
			fmt.Fprint(w, `{"id":"page-7"}`)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := New("secret", dbID, time.Second, WithBaseURL(srv.URL))
	id, err := s.Upsert(context.Background(), testRecord(), "page-7")
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if id != "page-7" {
		t.Fatalf("id = %q", id)
	}
}

func TestUpsert_SchemaMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"properties":{"Name":{"type":"title"},"Google Maps":{"type":"rich_text"}}}`)
	}))
	defer srv.Close()

	s := New("secret", dbID, time.Second, WithBaseURL(srv.URL))
	_, err := s.Upsert(context.Background(), testRecord(), "")
	if !domain.IsKind(err, domain.KindSchemaMismatch) {
		t.Fatalf("kind = %s, want %s", domain.KindOf(err), domain.KindSchemaMismatch)
	}
}

func TestUpsert_SchemaCheckedOncePerStore(t *testing.T) {
	var schemaCalls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/databases/"+dbID:
			schemaCalls.Add(1)
			fmt.Fprint(w, schemaBody)
		default:
			fmt.Fprint(w, `{"id":"page-1"}`)
		}
	}))
	defer srv.Close()

	s := New("secret", dbID, time.Second, WithBaseURL(srv.URL))
	for i := 0; i < 3; i++ {
		if _, err := s.Upsert(context.Background(), testRecord(), ""); err != nil {
			t.Fatalf("Upsert %d: %v", i, err)
		}
	}
	if got := schemaCalls.Load(); got != 1 {
		t.Fatalf("schema fetched %d times, want 1", got)
	}
}

func TestUpsert_InvalidRecordRejected(t *testing.T) {
	s := New("secret", dbID, time.Second, WithBaseURL("http://127.0.0.1:0"))
	_, err := s.Upsert(context.Background(), domain.RestaurantRecord{}, "")
	if !domain.IsKind(err, domain.KindSchemaMismatch) {
		t.Fatalf("kind = %s, want %s", domain.KindOf(err), domain.KindSchemaMismatch)
	}
}

func TestCall_RateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := New("secret", dbID, time.Second, WithBaseURL(srv.URL))
	_, err := s.FindByURL(context.Background(), "https://maps.example/p")
	if !domain.IsKind(err, domain.KindRateLimited) {
		t.Fatalf("kind = %s, want %s", domain.KindOf(err), domain.KindRateLimited)
	}
}
