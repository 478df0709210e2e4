package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skucast/tuning_go_server/internal/fingerprint"
	"github.com/skucast/tuning_go_server/internal/model"
	"github.com/skucast/tuning_go_server/internal/model/dto"
	"github.com/skucast/tuning_go_server/internal/pkg/control"
	"github.com/skucast/tuning_go_server/internal/pkg/lock"
	"github.com/skucast/tuning_go_server/internal/pkg/queue"
	"github.com/skucast/tuning_go_server/internal/repository"
)

var (
	ErrValidation        = errors.New("invalid submission")
	ErrJobNotFound       = errors.New("job not found")
	ErrJobNotCancellable = errors.New("job is already terminal")
)

// OptimizeService is the dedup/merge resolver: every submission either hits
// the result cache, merges into an in-flight job with the same fingerprint,
// or creates a new pending job.
type OptimizeService struct {
	db         *gorm.DB
	jobRepo    *repository.JobRepository
	resultRepo *repository.ResultRepository
	locker     *lock.Locker
	dispatch   *queue.Queue
	control    *control.Control
	datasets   *DatasetService
}

func NewOptimizeService(
	db *gorm.DB,
	jobRepo *repository.JobRepository,
	resultRepo *repository.ResultRepository,
	locker *lock.Locker,
	dispatch *queue.Queue,
	ctrl *control.Control,
	datasets *DatasetService,
) *OptimizeService {
	return &OptimizeService{
		db:         db,
		jobRepo:    jobRepo,
		resultRepo: resultRepo,
		locker:     locker,
		dispatch:   dispatch,
		control:    ctrl,
		datasets:   datasets,
	}
}

// Submit resolves a submission with one or more parameter sets. All items
// share one batch.
func (s *OptimizeService) Submit(ctx context.Context, tenantID int64, req *dto.SubmitOptimizationRequest) (*dto.SubmitOptimizationResponse, error) {
	if err := validateSubmission(req); err != nil {
		return nil, err
	}

	datasetID := req.DatasetID
	if datasetID == "" {
		token, err := s.datasets.Identity(ctx, tenantID, req.DatasetKey)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve dataset identity: %w", err)
		}
		datasetID = token
	}

	batchID := req.BatchID
	if batchID == "" {
		batchID = uuid.NewString()
	}

	priority := req.Priority
	if priority < model.PrioritySetup || priority > model.PriorityBulkImport {
		priority = model.PriorityBulkImport
	}

	paramSets := req.ParameterSets
	if len(paramSets) == 0 {
		paramSets = []map[string]float64{req.Parameters}
	}

	resp := &dto.SubmitOptimizationResponse{BatchID: batchID}

	for _, params := range paramSets {
		if params == nil {
			params = map[string]float64{}
		}
		item, err := s.submitOne(ctx, tenantID, req, batchID, datasetID, priority, params)
		if err != nil {
			return nil, err
		}
		resp.Items = append(resp.Items, *item)
	}

	return resp, nil
}

// submitOne runs the dedup algorithm for a single parameter set: cache
// lookup, then merge-or-create inside one transaction. The Redis lock
// serializes concurrent submitters of the same fingerprint so exactly one
// becomes the authoritative pending job.
func (s *OptimizeService) submitOne(
	ctx context.Context,
	tenantID int64,
	req *dto.SubmitOptimizationRequest,
	batchID, datasetID string,
	priority int,
	params map[string]float64,
) (*dto.SubmitItemResult, error) {
	weights := fingerprint.NormalizeWeights(req.MetricWeights)
	fp := fingerprint.Compute(fingerprint.Request{
		SKU:           req.SKU,
		ModelID:       req.ModelID,
		Method:        req.Method,
		DatasetID:     datasetID,
		Parameters:    params,
		MetricWeights: weights,
	})

	release, err := s.locker.Acquire(ctx, tenantID, fp)
	if err != nil {
		return nil, fmt.Errorf("failed to lock submission: %w", err)
	}
	defer release()

	item := &dto.SubmitItemResult{Fingerprint: fp}
	var createdPending *model.OptimizationJob

	err = s.db.Transaction(func(tx *gorm.DB) error {
		jobs := s.jobRepo.WithTx(tx)
		results := s.resultRepo.WithTx(tx)

		// 1. Cache short-circuit: no job row at all.
		cached, err := results.GetByFingerprint(tenantID, fp)
		if err != nil {
			return err
		}
		if cached != nil {
			item.Cached = true
			item.CachedResult = cached.ToJobResult()
			return nil
		}

		// 2. Merge into an in-flight job with the same fingerprint.
		active, err := jobs.FindActive(tenantID, fp)
		if err != nil {
			return err
		}

		job := &model.OptimizationJob{
			TenantID:      tenantID,
			BatchID:       batchID,
			BatchLabel:    req.Description,
			SKU:           req.SKU,
			ModelID:       req.ModelID,
			Method:        req.Method,
			DatasetID:     datasetID,
			Parameters:    model.Float64Map(params),
			MetricWeights: model.Float64Map(weights),
			Fingerprint:   fp,
			Priority:      priority,
		}

		if active != nil {
			job.Status = model.JobStatusSkipped
			job.MergedIntoJobID = &active.ID
			if err := jobs.Create(job); err != nil {
				return err
			}
			item.JobID = job.ID
			item.Merged = true
			item.MergedInto = active.ID
			return nil
		}

		// 3. Fresh work.
		job.Status = model.JobStatusPending
		if err := jobs.Create(job); err != nil {
			return err
		}
		item.JobID = job.ID
		createdPending = job
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Nudge the scheduler outside the transaction. Losing the nudge is fine,
	// the next poll picks the job up.
	if createdPending != nil {
		msg := &queue.DispatchMessage{
			JobID:       createdPending.ID,
			TenantID:    tenantID,
			Fingerprint: fp,
			Priority:    priority,
		}
		if err := s.dispatch.Push(ctx, msg); err != nil {
			log.Printf("Submit: failed to push dispatch nudge for job %d: %v", createdPending.ID, err)
		}
	}

	return item, nil
}

// GetJob returns a job. Skipped jobs resolve their result and live state
// from the job they were merged into.
func (s *OptimizeService) GetJob(tenantID, jobID int64) (*dto.JobDetail, error) {
	job, err := s.jobRepo.GetForTenant(tenantID, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	detail := &dto.JobDetail{OptimizationJob: job}

	if job.Status == model.JobStatusSkipped && job.MergedIntoJobID != nil {
		survivor, err := s.jobRepo.GetForTenant(tenantID, *job.MergedIntoJobID)
		switch {
		case err == nil:
			detail.MergedJob = &dto.MergedJobInfo{
				JobID:    survivor.ID,
				Status:   survivor.Status,
				Progress: survivor.Progress,
			}
			if survivor.Result != nil {
				detail.Result = survivor.Result
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			// Survivor purged by retention; the skipped row stands on its own.
		default:
			return nil, err
		}
	}

	return detail, nil
}

// Cancel cancels a job. Pending jobs flip to cancelled immediately; running
// jobs get a cooperative cancellation request that the worker honours
// between phases.
func (s *OptimizeService) Cancel(ctx context.Context, tenantID, jobID int64) (*dto.CancelResult, error) {
	job, err := s.jobRepo.GetForTenant(tenantID, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	switch job.Status {
	case model.JobStatusPending:
		ok, err := s.jobRepo.CancelPending(tenantID, jobID)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Lost a race with the scheduler; fall through to cooperative.
			if err := s.control.RequestCancel(ctx, jobID); err != nil {
				return nil, err
			}
			return &dto.CancelResult{JobID: jobID, Status: model.JobStatusRunning, Requested: true}, nil
		}
		return &dto.CancelResult{JobID: jobID, Status: model.JobStatusCancelled}, nil

	case model.JobStatusRunning:
		if err := s.control.RequestCancel(ctx, jobID); err != nil {
			return nil, err
		}
		return &dto.CancelResult{JobID: jobID, Status: model.JobStatusRunning, Requested: true}, nil

	default:
		return nil, ErrJobNotCancellable
	}
}

// SetPaused pauses or resumes scheduling for the tenant.
func (s *OptimizeService) SetPaused(ctx context.Context, tenantID int64, paused bool) error {
	return s.control.SetPaused(ctx, tenantID, paused)
}

// SchedulerStatus reports the operator view: pause flag, dispatch queue
// depth, job counts and cache size.
func (s *OptimizeService) SchedulerStatus(ctx context.Context, tenantID int64) (*dto.SchedulerStatus, error) {
	paused, err := s.control.IsPaused(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	depth, err := s.dispatch.Length(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.jobRepo.CountByStatus(tenantID)
	if err != nil {
		return nil, err
	}
	cacheSize, err := s.resultRepo.Count(tenantID)
	if err != nil {
		return nil, err
	}

	return &dto.SchedulerStatus{
		Paused:     paused,
		QueueDepth: depth,
		JobCounts:  counts,
		CacheSize:  cacheSize,
	}, nil
}

// ClearCompleted deletes terminal non-failed jobs. Cache entries persist.
func (s *OptimizeService) ClearCompleted(tenantID int64) (int64, error) {
	return s.jobRepo.DeleteCompleted(tenantID)
}

// ResetAll deletes every job in the tenant scope. Cache entries persist, so
// resubmissions short-circuit.
func (s *OptimizeService) ResetAll(tenantID int64) (int64, error) {
	return s.jobRepo.DeleteAll(tenantID)
}

// ClearCache deletes the tenant's cache entries, forcing recomputation on
// the next submission regardless of job history.
func (s *OptimizeService) ClearCache(tenantID int64) (int64, error) {
	return s.resultRepo.DeleteAll(tenantID)
}

func validateSubmission(req *dto.SubmitOptimizationRequest) error {
	if req.SKU == "" {
		return fmt.Errorf("%w: sku is required", ErrValidation)
	}
	if req.ModelID == "" {
		return fmt.Errorf("%w: model_id is required", ErrValidation)
	}
	if req.Method == "" {
		return fmt.Errorf("%w: method is required", ErrValidation)
	}
	if !model.ValidMethod(req.Method) {
		return fmt.Errorf("%w: unknown method %q", ErrValidation, req.Method)
	}
	if req.DatasetID == "" && req.DatasetKey == "" {
		return fmt.Errorf("%w: dataset_id or dataset_key is required", ErrValidation)
	}
	return nil
}
