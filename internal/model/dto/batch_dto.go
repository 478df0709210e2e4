package dto

// Batch list filters.
const (
	BatchFilterActive    = "active"
	BatchFilterCompleted = "completed"
	BatchFilterFailed    = "failed"
	BatchFilterSkipped   = "skipped"
)

// BatchStatus is the roll-up for one batch, recomputed from the job store on
// every read.
type BatchStatus struct {
	BatchID   string `json:"batch_id"`
	TotalJobs int64  `json:"total_jobs"`
	Pending   int64  `json:"pending"`
	Running   int64  `json:"running"`
	Completed int64  `json:"completed"`
	Failed    int64  `json:"failed"`
	Cancelled int64  `json:"cancelled"`
	Skipped   int64  `json:"skipped"`
	Progress  int    `json:"progress"`
}

// BatchSummary is one row of the batch list view.
type BatchSummary struct {
	BatchID   string `json:"batch_id"`
	Label     string `json:"label,omitempty"`
	SKU       string `json:"sku"`
	TotalJobs int64  `json:"total_jobs"`
	Pending   int64  `json:"pending"`
	Running   int64  `json:"running"`
	Completed int64  `json:"completed"`
	Failed    int64  `json:"failed"`
	Cancelled int64  `json:"cancelled"`
	Skipped   int64  `json:"skipped"`
	Progress  int    `json:"progress"`
	State     string `json:"state"` // active, completed, failed, mixed
}
