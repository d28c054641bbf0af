package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/BattermanZ/Gastropath/internal/domain"
	"github.com/BattermanZ/Gastropath/internal/repo"
)

func journalDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := repo.OpenSQLite(fmt.Sprintf("file:journal_%s?mode=memory&cache=shared", uuid.NewString()), false)
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrating: %v", err)
	}
	return db
}

func seedEntries(t *testing.T, db *gorm.DB, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		e := domain.IngestionEntry{
			SubmittedURL: fmt.Sprintf("https://maps.app.goo.gl/entry%d", i),
			Outcome:      domain.OutcomeCompleted,
		}
		if err := repo.RecordIngestion(context.Background(), db, &e); err != nil {
			t.Fatalf("seeding entry %d: %v", i, err)
		}
		// Distinct timestamps keep the recency ordering deterministic.
		db.Model(&domain.IngestionEntry{}).
			Where("id = ?", e.ID).
			Update("created_at", time.Now().UTC().Add(time.Duration(i)*time.Second))
	}
}

func TestListPage_ReturnsMostRecentFirst(t *testing.T) {
	db := journalDB(t)
	seedEntries(t, db, 5)

	svc := &JournalService{DB: db}
	items, total, err := svc.ListPage(context.Background(), 1, 3)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
	if len(items) != 3 {
		t.Fatalf("page holds %d items, want 3", len(items))
	}
	if items[0].SubmittedURL != "https://maps.app.goo.gl/entry4" {
		t.Errorf("first item = %q, want the most recent", items[0].SubmittedURL)
	}
}

func TestListPage_SecondPage(t *testing.T) {
	db := journalDB(t)
	seedEntries(t, db, 5)

	svc := &JournalService{DB: db}
	items, total, err := svc.ListPage(context.Background(), 2, 3)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 5 || len(items) != 2 {
		t.Fatalf("total = %d, page size = %d; want 5, 2", total, len(items))
	}
}

func TestListPage_DefaultsForInvalidInput(t *testing.T) {
	db := journalDB(t)
	seedEntries(t, db, 2)

	svc := &JournalService{DB: db}
	items, total, err := svc.ListPage(context.Background(), 0, -1)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("total = %d, page size = %d; want 2, 2", total, len(items))
	}
}

func TestListPage_EmptyJournal(t *testing.T) {
	db := journalDB(t)

	svc := &JournalService{DB: db}
	items, total, err := svc.ListPage(context.Background(), 1, 20)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 0 {
		t.Errorf("total = %d, want 0", total)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("items = %v, want empty non-nil slice", items)
	}
}
