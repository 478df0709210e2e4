package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/skucast/tuning_go_server/internal/model"
)

type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *JobRepository) WithTx(tx *gorm.DB) *JobRepository {
	return &JobRepository{db: tx}
}

func (r *JobRepository) Create(job *model.OptimizationJob) error {
	return r.db.Create(job).Error
}

func (r *JobRepository) GetByID(id int64) (*model.OptimizationJob, error) {
	var job model.OptimizationJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) GetForTenant(tenantID, id int64) (*model.OptimizationJob, error) {
	var job model.OptimizationJob
	err := r.db.Where("tenant_id = ? AND id = ?", tenantID, id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *JobRepository) Update(job *model.OptimizationJob) error {
	return r.db.Save(job).Error
}

// FindActive returns the pending or running job for a fingerprint, if any.
// The dedup invariant guarantees at most one exists.
func (r *JobRepository) FindActive(tenantID int64, fp string) (*model.OptimizationJob, error) {
	var job model.OptimizationJob
	err := r.db.
		Where("tenant_id = ? AND fingerprint = ? AND status IN ?",
			tenantID, fp, []string{model.JobStatusPending, model.JobStatusRunning}).
		Order("created_at ASC").
		First(&job).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

// NextEligible returns pending jobs ready for dispatch in priority-then-FIFO
// order, excluding fingerprints that already have a running job and tenants
// in the excluded (paused) set.
func (r *JobRepository) NextEligible(limit int, excludeTenants []int64) ([]*model.OptimizationJob, error) {
	var jobs []*model.OptimizationJob
	query := r.db.
		Where("status = ?", model.JobStatusPending).
		Where("NOT EXISTS (SELECT 1 FROM optimization_jobs r WHERE r.tenant_id = optimization_jobs.tenant_id AND r.fingerprint = optimization_jobs.fingerprint AND r.status = ?)",
			model.JobStatusRunning)
	if len(excludeTenants) > 0 {
		query = query.Where("tenant_id NOT IN ?", excludeTenants)
	}
	err := query.
		Order("priority ASC, created_at ASC, id ASC").
		Limit(limit).
		Find(&jobs).Error
	return jobs, err
}

// Claim transitions a job from pending to running. Returns false when
// another scheduler instance won the race or the job was cancelled.
func (r *JobRepository) Claim(id int64) (bool, error) {
	now := time.Now()
	res := r.db.Model(&model.OptimizationJob{}).
		Where("id = ? AND status = ?", id, model.JobStatusPending).
		Updates(map[string]interface{}{
			"status":     model.JobStatusRunning,
			"started_at": now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateProgress records worker progress. The guard keeps progress
// monotonically non-decreasing and only touches running jobs.
func (r *JobRepository) UpdateProgress(id int64, progress int) error {
	return r.db.Model(&model.OptimizationJob{}).
		Where("id = ? AND status = ? AND progress <= ?", id, model.JobStatusRunning, progress).
		Updates(map[string]interface{}{
			"progress":   progress,
			"updated_at": time.Now(),
		}).Error
}

func (r *JobRepository) MarkCompleted(id int64, result *model.JobResult) error {
	now := time.Now()
	return r.db.Model(&model.OptimizationJob{}).
		Where("id = ? AND status = ?", id, model.JobStatusRunning).
		Updates(map[string]interface{}{
			"status":       model.JobStatusCompleted,
			"progress":     100,
			"result":       result,
			"completed_at": now,
			"updated_at":   now,
		}).Error
}

func (r *JobRepository) MarkFailed(id int64, errMsg string) error {
	now := time.Now()
	return r.db.Model(&model.OptimizationJob{}).
		Where("id = ? AND status = ?", id, model.JobStatusRunning).
		Updates(map[string]interface{}{
			"status":        model.JobStatusFailed,
			"error_message": errMsg,
			"completed_at":  now,
			"updated_at":    now,
		}).Error
}

// CancelPending cancels a job that has not started yet. Returns false when
// the job was not pending (already running, terminal, or missing).
func (r *JobRepository) CancelPending(tenantID, id int64) (bool, error) {
	now := time.Now()
	res := r.db.Model(&model.OptimizationJob{}).
		Where("tenant_id = ? AND id = ? AND status = ?", tenantID, id, model.JobStatusPending).
		Updates(map[string]interface{}{
			"status":       model.JobStatusCancelled,
			"completed_at": now,
			"updated_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkCancelled finishes a running job whose worker honoured a cooperative
// cancellation request.
func (r *JobRepository) MarkCancelled(id int64) error {
	now := time.Now()
	return r.db.Model(&model.OptimizationJob{}).
		Where("id = ? AND status = ?", id, model.JobStatusRunning).
		Updates(map[string]interface{}{
			"status":       model.JobStatusCancelled,
			"completed_at": now,
			"updated_at":   now,
		}).Error
}

// RequeueStale puts running jobs with no progress update since cutoff back
// to pending. A silent worker past the liveness timeout is presumed dead.
func (r *JobRepository) RequeueStale(cutoff time.Time) (int64, error) {
	res := r.db.Model(&model.OptimizationJob{}).
		Where("status = ? AND updated_at < ?", model.JobStatusRunning, cutoff).
		Updates(map[string]interface{}{
			"status":     model.JobStatusPending,
			"updated_at": time.Now(),
		})
	return res.RowsAffected, res.Error
}

// CountByBatch returns per-status counts for one batch.
func (r *JobRepository) CountByBatch(tenantID int64, batchID string) (map[string]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := r.db.Model(&model.OptimizationJob{}).
		Select("status, COUNT(*) AS n").
		Where("tenant_id = ? AND batch_id = ?", tenantID, batchID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}

// BatchStatusRow is one (batch, status) group used to fold batch summaries.
type BatchStatusRow struct {
	BatchID    string
	BatchLabel string
	SKU        string
	Status     string
	N          int64
}

// GroupByBatch returns (batch, status) counts for a tenant, oldest batch
// first.
func (r *JobRepository) GroupByBatch(tenantID int64) ([]BatchStatusRow, error) {
	var rows []BatchStatusRow
	err := r.db.Model(&model.OptimizationJob{}).
		Select("batch_id, MAX(batch_label) AS batch_label, MAX(sku) AS sku, status, COUNT(*) AS n").
		Where("tenant_id = ?", tenantID).
		Group("batch_id, status").
		Order("MIN(created_at) ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *JobRepository) ListByBatch(tenantID int64, batchID string) ([]*model.OptimizationJob, error) {
	var jobs []*model.OptimizationJob
	err := r.db.
		Where("tenant_id = ? AND batch_id = ?", tenantID, batchID).
		Order("created_at ASC, id ASC").
		Find(&jobs).Error
	return jobs, err
}

func (r *JobRepository) CountByStatus(tenantID int64) (map[string]int64, error) {
	type row struct {
		Status string
		N      int64
	}
	var rows []row
	err := r.db.Model(&model.OptimizationJob{}).
		Select("status, COUNT(*) AS n").
		Where("tenant_id = ?", tenantID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}

// DeleteCompleted removes terminal jobs that did not fail: completed,
// cancelled and skipped. Cache entries are not touched.
func (r *JobRepository) DeleteCompleted(tenantID int64) (int64, error) {
	res := r.db.
		Where("tenant_id = ? AND status IN ?", tenantID,
			[]string{model.JobStatusCompleted, model.JobStatusCancelled, model.JobStatusSkipped}).
		Delete(&model.OptimizationJob{})
	return res.RowsAffected, res.Error
}

// DeleteAll removes every job for a tenant. Cache entries persist, so
// resubmissions hit the cache.
func (r *JobRepository) DeleteAll(tenantID int64) (int64, error) {
	res := r.db.
		Where("tenant_id = ?", tenantID).
		Delete(&model.OptimizationJob{})
	return res.RowsAffected, res.Error
}

// DeleteTerminalBefore removes terminal jobs older than cutoff, used by the
// retention cleanup task.
func (r *JobRepository) DeleteTerminalBefore(cutoff time.Time) (int64, error) {
	res := r.db.
		Where("status IN ? AND updated_at < ?",
			[]string{model.JobStatusCompleted, model.JobStatusFailed, model.JobStatusCancelled, model.JobStatusSkipped},
			cutoff).
		Delete(&model.OptimizationJob{})
	return res.RowsAffected, res.Error
}
