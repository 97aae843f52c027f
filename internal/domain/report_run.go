package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReportRun is a completed report run as kept in run history
type ReportRun struct {
	RunID      uuid.UUID   `json:"run_id"`
	CreatedAt  time.Time   `json:"created_at"`
	Kind       ReportKind  `json:"kind"`
	GroupField string      `json:"group_field"`
	Files      []string    `json:"files"`
	DateFilter string      `json:"date_filter,omitempty"` // YYYY-MM-DD, empty when no filter
	ReportPath string      `json:"report_path"`
	Rows       []ReportRow `json:"rows"`
	Metrics    RunMetrics  `json:"metrics"`
	Checksum   string      `json:"checksum"` // SHA256 of the ordered rows
}
