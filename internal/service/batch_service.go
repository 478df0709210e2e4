package service

import (
	"math"

	"github.com/skucast/tuning_go_server/internal/model"
	"github.com/skucast/tuning_go_server/internal/model/dto"
	"github.com/skucast/tuning_go_server/internal/repository"
)

// BatchService derives batch views from the job store on every read. Nothing
// is stored per batch, so the roll-up can never drift from the jobs.
type BatchService struct {
	jobRepo *repository.JobRepository
}

func NewBatchService(jobRepo *repository.JobRepository) *BatchService {
	return &BatchService{jobRepo: jobRepo}
}

// GetStatus computes the roll-up for one batch. An unknown batch reports
// zero jobs and zero progress.
func (s *BatchService) GetStatus(tenantID int64, batchID string) (*dto.BatchStatus, error) {
	counts, err := s.jobRepo.CountByBatch(tenantID, batchID)
	if err != nil {
		return nil, err
	}

	status := &dto.BatchStatus{
		BatchID:   batchID,
		Pending:   counts[model.JobStatusPending],
		Running:   counts[model.JobStatusRunning],
		Completed: counts[model.JobStatusCompleted],
		Failed:    counts[model.JobStatusFailed],
		Cancelled: counts[model.JobStatusCancelled],
		Skipped:   counts[model.JobStatusSkipped],
	}
	for _, n := range counts {
		status.TotalJobs += n
	}
	status.Progress = batchProgress(status.Completed, status.TotalJobs)

	return status, nil
}

// List returns batch summaries, optionally narrowed to one view:
// active (≥1 pending/running), completed (all terminal, none failed or
// cancelled), failed (≥1 failed and nothing still active), skipped
// (≥1 merged submission, independent of the other views).
func (s *BatchService) List(tenantID int64, filter string) ([]*dto.BatchSummary, error) {
	rows, err := s.jobRepo.GroupByBatch(tenantID)
	if err != nil {
		return nil, err
	}

	order := make([]string, 0)
	byID := make(map[string]*dto.BatchSummary)

	for _, row := range rows {
		summary, ok := byID[row.BatchID]
		if !ok {
			summary = &dto.BatchSummary{BatchID: row.BatchID}
			byID[row.BatchID] = summary
			order = append(order, row.BatchID)
		}
		if summary.SKU == "" {
			summary.SKU = row.SKU
		}
		if summary.Label == "" {
			summary.Label = row.BatchLabel
		}
		summary.TotalJobs += row.N
		switch row.Status {
		case model.JobStatusPending:
			summary.Pending += row.N
		case model.JobStatusRunning:
			summary.Running += row.N
		case model.JobStatusCompleted:
			summary.Completed += row.N
		case model.JobStatusFailed:
			summary.Failed += row.N
		case model.JobStatusCancelled:
			summary.Cancelled += row.N
		case model.JobStatusSkipped:
			summary.Skipped += row.N
		}
	}

	summaries := make([]*dto.BatchSummary, 0, len(order))
	for _, id := range order {
		summary := byID[id]
		summary.Progress = batchProgress(summary.Completed, summary.TotalJobs)
		summary.State = classify(summary)

		if !matchesFilter(summary, filter) {
			continue
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

func classify(s *dto.BatchSummary) string {
	switch {
	case s.Pending > 0 || s.Running > 0:
		return dto.BatchFilterActive
	case s.Failed > 0:
		return dto.BatchFilterFailed
	case s.Cancelled > 0:
		// Terminal but neither clean nor failed.
		return "mixed"
	default:
		return dto.BatchFilterCompleted
	}
}

func matchesFilter(s *dto.BatchSummary, filter string) bool {
	switch filter {
	case "":
		return true
	case dto.BatchFilterSkipped:
		// Orthogonal view: merges can exist alongside active work.
		return s.Skipped > 0
	default:
		return s.State == filter
	}
}

// batchProgress is round(100 * completed / total); empty batches report 0.
func batchProgress(completed, total int64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}
