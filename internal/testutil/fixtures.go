package testutil

import (
	"testing"

	"gorm.io/gorm"

	"github.com/skucast/tuning_go_server/internal/fingerprint"
	"github.com/skucast/tuning_go_server/internal/model"
)

// TestJob creates a pending tuning job with sensible defaults. Options
// mutate the job before insert.
func TestJob(t *testing.T, db *gorm.DB, tenantID int64, opts ...func(*model.OptimizationJob)) *model.OptimizationJob {
	t.Helper()

	job := &model.OptimizationJob{
		TenantID:      tenantID,
		BatchID:       "batch-test",
		SKU:           "SKU-001",
		ModelID:       "arima",
		Method:        model.MethodGrid,
		DatasetID:     "ds-test@r1",
		Parameters:    model.Float64Map{"p": 1, "d": 1, "q": 1},
		MetricWeights: model.Float64Map(fingerprint.DefaultMetricWeights()),
		Status:        model.JobStatusPending,
		Priority:      model.PriorityBulkImport,
	}

	for _, opt := range opts {
		opt(job)
	}

	if job.Fingerprint == "" {
		job.Fingerprint = fingerprint.Compute(fingerprint.Request{
			SKU:           job.SKU,
			ModelID:       job.ModelID,
			Method:        job.Method,
			DatasetID:     job.DatasetID,
			Parameters:    job.Parameters,
			MetricWeights: job.MetricWeights,
		})
	}

	if err := db.Create(job).Error; err != nil {
		t.Fatalf("Failed to create test job: %v", err)
	}

	return job
}

// WithStatus sets the job status.
func WithStatus(status string) func(*model.OptimizationJob) {
	return func(j *model.OptimizationJob) {
		j.Status = status
	}
}

// WithSKU sets the SKU.
func WithSKU(sku string) func(*model.OptimizationJob) {
	return func(j *model.OptimizationJob) {
		j.SKU = sku
	}
}

// WithBatch sets the batch id.
func WithBatch(batchID string) func(*model.OptimizationJob) {
	return func(j *model.OptimizationJob) {
		j.BatchID = batchID
	}
}

// WithPriority sets the priority.
func WithPriority(priority int) func(*model.OptimizationJob) {
	return func(j *model.OptimizationJob) {
		j.Priority = priority
	}
}

// WithParameters sets the parameter map (changes the fingerprint).
func WithParameters(params map[string]float64) func(*model.OptimizationJob) {
	return func(j *model.OptimizationJob) {
		j.Parameters = model.Float64Map(params)
	}
}

// WithMethod sets the tuning method.
func WithMethod(method string) func(*model.OptimizationJob) {
	return func(j *model.OptimizationJob) {
		j.Method = method
	}
}

// TestResult creates a cache entry derived from a completed job.
func TestResult(t *testing.T, db *gorm.DB, job *model.OptimizationJob, composite float64) *model.OptimizationResult {
	t.Helper()

	result := &model.OptimizationResult{
		TenantID:       job.TenantID,
		SourceJobID:    job.ID,
		Fingerprint:    job.Fingerprint,
		SKU:            job.SKU,
		ModelID:        job.ModelID,
		Method:         job.Method,
		DatasetID:      job.DatasetID,
		Parameters:     job.Parameters,
		Scores:         model.Float64Map{"mape": 0.12, "rmse": 4.2, "mae": 3.1, "accuracy": 0.88, "composite": composite},
		Forecasts:      model.ForecastSeries{{Period: "2026-01", Value: 120}, {Period: "2026-02", Value: 132}},
		CompositeScore: composite,
	}

	if err := db.Create(result).Error; err != nil {
		t.Fatalf("Failed to create test result: %v", err)
	}

	return result
}
