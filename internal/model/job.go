package model

import (
	"time"
)

// Job lifecycle states.
const (
	JobStatusPending   = "pending"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
	JobStatusSkipped   = "skipped"
)

// Tuning methods.
const (
	MethodAI     = "ai"
	MethodGrid   = "grid"
	MethodManual = "manual"
)

// Submission priorities, lower is more urgent.
const (
	PrioritySetup      = 1
	PriorityCleaning   = 2
	PriorityBulkImport = 3
)

// OptimizationJob is one parameter-tuning attempt for a (SKU, model, method)
// combination. At most one job per (tenant, fingerprint) may be pending or
// running; duplicate submissions are recorded as skipped and linked to the
// surviving job via MergedIntoJobID.
type OptimizationJob struct {
	ID              int64      `gorm:"primaryKey" json:"id"`
	TenantID        int64      `gorm:"not null;index:idx_jobs_tenant_status;index:idx_jobs_tenant_batch;index:idx_jobs_tenant_fingerprint" json:"tenant_id"`
	BatchID         string     `gorm:"size:64;not null;index:idx_jobs_tenant_batch" json:"batch_id"`
	BatchLabel      string     `gorm:"size:200" json:"batch_label,omitempty"`
	SKU             string     `gorm:"size:100;not null" json:"sku"`
	ModelID         string     `gorm:"size:50;not null" json:"model_id"`
	Method          string     `gorm:"size:20;not null" json:"method"` // ai, grid, manual
	DatasetID       string     `gorm:"size:200;not null" json:"dataset_id"`
	Parameters      Float64Map `gorm:"type:json" json:"parameters"`
	MetricWeights   Float64Map `gorm:"type:json" json:"metric_weights"`
	Fingerprint     string     `gorm:"size:64;not null;index:idx_jobs_tenant_fingerprint" json:"fingerprint"`
	Status          string     `gorm:"size:20;default:pending;index:idx_jobs_tenant_status" json:"status"`
	Priority        int        `gorm:"not null;default:3" json:"priority"`
	Progress        int        `gorm:"not null;default:0" json:"progress"`
	Result          *JobResult `gorm:"type:json" json:"result,omitempty"`
	ErrorMessage    string     `gorm:"type:text" json:"error_message,omitempty"`
	MergedIntoJobID *int64     `gorm:"index" json:"merged_into_job_id,omitempty"`
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

func (OptimizationJob) TableName() string {
	return "optimization_jobs"
}

// IsTerminal reports whether the job can no longer change state on its own.
// Skipped jobs are terminal: their outcome is the surviving job's outcome.
func (j *OptimizationJob) IsTerminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled, JobStatusSkipped:
		return true
	}
	return false
}

// ValidStatus reports whether s is a known job status.
func ValidStatus(s string) bool {
	switch s {
	case JobStatusPending, JobStatusRunning, JobStatusCompleted,
		JobStatusFailed, JobStatusCancelled, JobStatusSkipped:
		return true
	}
	return false
}

// ValidMethod reports whether m is a known tuning method.
func ValidMethod(m string) bool {
	switch m {
	case MethodAI, MethodGrid, MethodManual:
		return true
	}
	return false
}
