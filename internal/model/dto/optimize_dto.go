package dto

import (
	"github.com/skucast/tuning_go_server/internal/model"
)

// SubmitOptimizationRequest asks for one or more tuning runs for a SKU.
// ParameterSets submits several candidate parameter maps as one batch; when
// it is empty the single Parameters map is used. DatasetID is the identity
// token from the dataset provider; when omitted, DatasetKey is resolved to
// the current token.
type SubmitOptimizationRequest struct {
	SKU           string               `json:"sku"`
	ModelID       string               `json:"model_id"`
	Method        string               `json:"method"`
	DatasetID     string               `json:"dataset_id"`
	DatasetKey    string               `json:"dataset_key"`
	Parameters    map[string]float64   `json:"parameters"`
	ParameterSets []map[string]float64 `json:"parameter_sets"`
	MetricWeights map[string]float64   `json:"metric_weights"`
	Priority      int                  `json:"priority"`
	BatchID       string               `json:"batch_id"`
	Description   string               `json:"description"`
}

// SubmitItemResult is the outcome for one parameter set: a cache hit, a merge
// into an in-flight job, or a fresh pending job.
type SubmitItemResult struct {
	JobID        int64            `json:"job_id,omitempty"`
	Fingerprint  string           `json:"fingerprint"`
	Merged       bool             `json:"merged"`
	MergedInto   int64            `json:"merged_into,omitempty"`
	Cached       bool             `json:"cached"`
	CachedResult *model.JobResult `json:"cached_result,omitempty"`
}

type SubmitOptimizationResponse struct {
	BatchID string             `json:"batch_id"`
	Items   []SubmitItemResult `json:"items"`
}

// MergedJobInfo describes the surviving job a skipped submission follows.
type MergedJobInfo struct {
	JobID    int64  `json:"job_id"`
	Status   string `json:"status"`
	Progress int    `json:"progress"`
}

// JobDetail is a job plus, for skipped jobs, the live state of the job it
// was merged into. Result is resolved from the survivor when needed.
type JobDetail struct {
	*model.OptimizationJob
	MergedJob *MergedJobInfo `json:"merged_job,omitempty"`
}

// CancelResult reports how a cancellation was handled.
type CancelResult struct {
	JobID     int64  `json:"job_id"`
	Status    string `json:"status"`
	Requested bool   `json:"cancel_requested"` // true when cooperative (job was running)
}

// SchedulerStatus is the operator view of the scheduling plane.
type SchedulerStatus struct {
	Paused     bool             `json:"paused"`
	QueueDepth int64            `json:"queue_depth"`
	JobCounts  map[string]int64 `json:"job_counts"`
	CacheSize  int64            `json:"cache_size"`
}
