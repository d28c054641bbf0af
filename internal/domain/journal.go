package domain

import "time"

// IngestionEntry is one row of the local ingestion journal: an audit record
// of a single pipeline run. The journal is bookkeeping only; the external
// store remains the source of truth for restaurant records.
type IngestionEntry struct {
	ID           string    `json:"id"            gorm:"type:char(36);primaryKey"`
	SubmittedURL string    `json:"submitted_url" gorm:"type:text;not null"`
	CanonicalURL string    `json:"canonical_url" gorm:"type:text;index"`
	Outcome      string    `json:"outcome"       gorm:"type:varchar(32);not null;index"`
	RecordID     string    `json:"record_id,omitempty"  gorm:"type:varchar(64)"`
	Name         string    `json:"name,omitempty"       gorm:"type:varchar(255)"`
	ErrorCode    string    `json:"error_code,omitempty" gorm:"type:varchar(64)"`
	DurationMS   int64     `json:"duration_ms"`
	CreatedAt    time.Time `json:"created_at" gorm:"index"`
}

// TableName returns the database table name for IngestionEntry.
func (IngestionEntry) TableName() string { return "ingestions" }

// Journal outcome values.
const (
	OutcomeCompleted = "completed"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)
