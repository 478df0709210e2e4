package worker

import (
	"context"
	"errors"
	"log"
	"strings"

	"gorm.io/gorm"

	"github.com/skucast/tuning_go_server/internal/model"
	"github.com/skucast/tuning_go_server/internal/pkg/control"
	"github.com/skucast/tuning_go_server/internal/pkg/pubsub"
	"github.com/skucast/tuning_go_server/internal/repository"
)

// Runner executes one claimed job end to end: run the optimizer, persist
// progress, and finish the job as completed, failed, or cancelled. Results
// are only cached on success; a failed run never produces a cache entry.
type Runner struct {
	db         *gorm.DB
	jobRepo    *repository.JobRepository
	resultRepo *repository.ResultRepository
	optimizer  Optimizer
	control    *control.Control
	publisher  *pubsub.Publisher
}

func NewRunner(
	db *gorm.DB,
	jobRepo *repository.JobRepository,
	resultRepo *repository.ResultRepository,
	optimizer Optimizer,
	ctrl *control.Control,
	publisher *pubsub.Publisher,
) *Runner {
	return &Runner{
		db:         db,
		jobRepo:    jobRepo,
		resultRepo: resultRepo,
		optimizer:  optimizer,
		control:    ctrl,
		publisher:  publisher,
	}
}

// Run processes a job that has already been claimed (status running). The
// optimizer's context is cancelled when a cooperative cancellation request
// arrives; the runner then records the job as cancelled, not failed.
func (r *Runner) Run(ctx context.Context, job *model.OptimizationJob) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	cancelled := false
	report := func(progress int) {
		requested, err := r.control.CancelRequested(ctx, job.ID)
		if err != nil {
			log.Printf("Runner: cancel check failed for job %d: %v", job.ID, err)
		} else if requested {
			cancelled = true
			cancel()
			return
		}

		// Monotonic by the guarded UPDATE; stale writes are no-ops.
		if err := r.jobRepo.UpdateProgress(job.ID, progress); err != nil {
			log.Printf("Runner: failed to update progress for job %d: %v", job.ID, err)
		}
		r.publish(ctx, job, model.JobStatusRunning, progress, "", "")
	}

	outcome, err := r.optimizer.Optimize(runCtx, OptimizeSpec{
		JobID:         job.ID,
		TenantID:      job.TenantID,
		SKU:           job.SKU,
		ModelID:       job.ModelID,
		Method:        job.Method,
		DatasetID:     job.DatasetID,
		Parameters:    job.Parameters,
		MetricWeights: job.MetricWeights,
	}, report)

	switch {
	case cancelled:
		r.finishCancelled(ctx, job)
	case errors.Is(err, context.Canceled):
		// Shutdown, not a user cancel. Leave the job running; the stale
		// requeue puts it back to pending.
		log.Printf("Runner: job %d interrupted by shutdown, leaving for requeue", job.ID)
		return
	case err != nil:
		r.finishFailed(ctx, job, err)
	default:
		r.finishCompleted(ctx, job, outcome)
	}

	if err := r.control.ClearCancel(ctx, job.ID); err != nil {
		log.Printf("Runner: failed to clear cancel flag for job %d: %v", job.ID, err)
	}
}

// finishCompleted commits the cache entry and the job's completion in one
// transaction. A duplicate cache row from a concurrent identical run is
// tolerated: the first writer wins and the job still completes.
func (r *Runner) finishCompleted(ctx context.Context, job *model.OptimizationJob, outcome *Outcome) {
	result := &model.JobResult{
		Scores:    model.Float64Map(outcome.Scores),
		Forecasts: outcome.Forecasts,
	}

	err := r.db.Transaction(func(tx *gorm.DB) error {
		entry := &model.OptimizationResult{
			TenantID:       job.TenantID,
			SourceJobID:    job.ID,
			Fingerprint:    job.Fingerprint,
			SKU:            job.SKU,
			ModelID:        job.ModelID,
			Method:         job.Method,
			DatasetID:      job.DatasetID,
			Parameters:     job.Parameters,
			Scores:         model.Float64Map(outcome.Scores),
			Forecasts:      outcome.Forecasts,
			CompositeScore: outcome.Scores["composite"],
		}
		if err := r.resultRepo.WithTx(tx).Create(entry); err != nil && !isDuplicate(err) {
			return err
		}
		return r.jobRepo.WithTx(tx).MarkCompleted(job.ID, result)
	})
	if err != nil {
		log.Printf("Runner: failed to finish job %d: %v", job.ID, err)
		if err := r.jobRepo.MarkFailed(job.ID, "failed to persist result: "+err.Error()); err != nil {
			log.Printf("Runner: failed to mark job %d failed: %v", job.ID, err)
		}
		r.publish(ctx, job, model.JobStatusFailed, 0, "", "failed to persist result")
		return
	}

	r.publish(ctx, job, model.JobStatusCompleted, 100, "optimization completed", "")
}

func (r *Runner) finishFailed(ctx context.Context, job *model.OptimizationJob, runErr error) {
	log.Printf("Runner: job %d failed: %v", job.ID, runErr)
	if err := r.jobRepo.MarkFailed(job.ID, runErr.Error()); err != nil {
		log.Printf("Runner: failed to mark job %d failed: %v", job.ID, err)
	}
	r.publish(ctx, job, model.JobStatusFailed, 0, "", runErr.Error())
}

func (r *Runner) finishCancelled(ctx context.Context, job *model.OptimizationJob) {
	log.Printf("Runner: job %d cancelled", job.ID)
	if err := r.jobRepo.MarkCancelled(job.ID); err != nil {
		log.Printf("Runner: failed to mark job %d cancelled: %v", job.ID, err)
	}
	r.publish(ctx, job, model.JobStatusCancelled, 0, "cancelled by request", "")
}

func (r *Runner) publish(ctx context.Context, job *model.OptimizationJob, status string, progress int, message, errMsg string) {
	if r.publisher == nil {
		return
	}
	err := r.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
		TenantID: job.TenantID,
		JobID:    job.ID,
		BatchID:  job.BatchID,
		SKU:      job.SKU,
		ModelID:  job.ModelID,
		Method:   job.Method,
		Status:   status,
		Progress: progress,
		Message:  message,
		Error:    errMsg,
	})
	if err != nil {
		log.Printf("Runner: failed to publish progress for job %d: %v", job.ID, err)
	}
}

// isDuplicate detects unique-constraint violations across MySQL and the
// sqlite driver used in tests.
func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
