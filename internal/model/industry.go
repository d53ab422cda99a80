package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// JobStatus represents the lifecycle state of an industry job.
type JobStatus string

const (
	JobActive    JobStatus = "active"
	JobPaused    JobStatus = "paused"
	JobReady     JobStatus = "ready"
	JobDelivered JobStatus = "delivered"
	JobCancelled JobStatus = "cancelled"
	JobReverted  JobStatus = "reverted"
)

// Terminal reports whether the job can no longer change upstream.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobDelivered, JobCancelled, JobReverted:
		return true
	}
	return false
}

// IndustryJob is one corporation industry job as returned by ESI.
type IndustryJob struct {
	JobID            int64           `json:"job_id"`
	InstallerID      int64           `json:"installer_id"`
	FacilityID       int64           `json:"facility_id"`
	LocationID       int64           `json:"location_id"`
	ActivityID       int64           `json:"activity_id"`
	BlueprintID      int64           `json:"blueprint_id"`
	BlueprintTypeID  int64           `json:"blueprint_type_id"`
	ProductTypeID    int64           `json:"product_type_id"`
	Runs             int64           `json:"runs"`
	SuccessfulRuns   int64           `json:"successful_runs"`
	Cost             decimal.Decimal `json:"cost"`
	Status           JobStatus       `json:"status"`
	Duration         int64           `json:"duration"`
	StartDate        time.Time       `json:"start_date"`
	EndDate          time.Time       `json:"end_date"`
	PauseDate        time.Time       `json:"pause_date"`
	CompletedDate    time.Time       `json:"completed_date"`
	CompletedCharID  int64           `json:"completed_character_id"`
	OutputLocationID int64           `json:"output_location_id"`

	Raw json.RawMessage `json:"-"`
}
