package model

import (
	"time"
)

// OptimizationResult is a cache entry for a completed tuning run, keyed by
// the request fingerprint. Rows are immutable once written; a changed input
// produces a different fingerprint and therefore a new row. The only way an
// entry disappears is the explicit clear-cache operation.
type OptimizationResult struct {
	ID             int64          `gorm:"primaryKey" json:"id"`
	TenantID       int64          `gorm:"not null;uniqueIndex:idx_results_tenant_fingerprint" json:"tenant_id"`
	SourceJobID    int64          `gorm:"not null;index" json:"source_job_id"`
	Fingerprint    string         `gorm:"size:64;not null;uniqueIndex:idx_results_tenant_fingerprint" json:"fingerprint"`
	SKU            string         `gorm:"size:100;not null;index" json:"sku"`
	ModelID        string         `gorm:"size:50;not null" json:"model_id"`
	Method         string         `gorm:"size:20;not null" json:"method"`
	DatasetID      string         `gorm:"size:200;not null;index" json:"dataset_id"`
	Parameters     Float64Map     `gorm:"type:json" json:"parameters"`
	Scores         Float64Map     `gorm:"type:json" json:"scores"`
	Forecasts      ForecastSeries `gorm:"type:json" json:"forecasts"`
	CompositeScore float64        `gorm:"not null;default:0;index" json:"composite_score"`
	CreatedAt      time.Time      `gorm:"index" json:"created_at"`
}

func (OptimizationResult) TableName() string {
	return "optimization_results"
}

// ToJobResult converts the cache entry back into the payload shape attached
// to jobs and returned to submitters on a cache hit.
func (r *OptimizationResult) ToJobResult() *JobResult {
	return &JobResult{
		Scores:    r.Scores,
		Forecasts: r.Forecasts,
	}
}
