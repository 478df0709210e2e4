package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/skucast/tuning_go_server/internal/model"
	"github.com/skucast/tuning_go_server/internal/pkg/control"
	"github.com/skucast/tuning_go_server/internal/pkg/queue"
	"github.com/skucast/tuning_go_server/internal/repository"
	"github.com/skucast/tuning_go_server/internal/worker"
)

// Scheduler moves pending jobs into the worker pool. The database is the
// source of truth: the Redis nudge queue only wakes the loop early, and a
// poll tick catches anything a lost nudge would miss.
type Scheduler struct {
	jobRepo  *repository.JobRepository
	dispatch *queue.Queue
	control  *control.Control
	runner   *worker.Runner

	pollInterval    time.Duration
	livenessTimeout time.Duration

	slots chan struct{}
	wg    sync.WaitGroup
}

func New(
	jobRepo *repository.JobRepository,
	dispatch *queue.Queue,
	ctrl *control.Control,
	runner *worker.Runner,
	maxWorkers int,
	pollInterval, livenessTimeout time.Duration,
) *Scheduler {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &Scheduler{
		jobRepo:         jobRepo,
		dispatch:        dispatch,
		control:         ctrl,
		runner:          runner,
		pollInterval:    pollInterval,
		livenessTimeout: livenessTimeout,
		slots:           make(chan struct{}, maxWorkers),
	}
}

// Run blocks until ctx is cancelled, then waits for in-flight jobs to
// finish.
func (s *Scheduler) Run(ctx context.Context) {
	log.Printf("Scheduler: started with %d worker slots, poll interval %s", cap(s.slots), s.pollInterval)

	nudges := make(chan struct{}, 1)
	go s.listenNudges(ctx, nudges)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		s.dispatchOnce(ctx)

		select {
		case <-ctx.Done():
			log.Println("Scheduler: shutting down, waiting for running jobs")
			s.wg.Wait()
			return
		case <-ticker.C:
		case <-nudges:
		}
	}
}

// dispatchOnce runs one scheduling pass: requeue stale jobs, then claim and
// start as many eligible pending jobs as there are free slots.
func (s *Scheduler) dispatchOnce(ctx context.Context) {
	if n, err := s.jobRepo.RequeueStale(time.Now().Add(-s.livenessTimeout)); err != nil {
		log.Printf("Scheduler: stale requeue failed: %v", err)
	} else if n > 0 {
		log.Printf("Scheduler: requeued %d stale running jobs", n)
	}

	free := cap(s.slots) - len(s.slots)
	if free <= 0 {
		return
	}

	excluded, err := s.control.PausedTenants(ctx)
	if err != nil {
		log.Printf("Scheduler: failed to read paused tenants: %v", err)
		return
	}

	jobs, err := s.jobRepo.NextEligible(free, excluded)
	if err != nil {
		log.Printf("Scheduler: failed to fetch eligible jobs: %v", err)
		return
	}

	for _, job := range jobs {
		select {
		case s.slots <- struct{}{}:
		default:
			return
		}

		claimed, err := s.jobRepo.Claim(job.ID)
		if err != nil || !claimed {
			<-s.slots
			if err != nil {
				log.Printf("Scheduler: claim failed for job %d: %v", job.ID, err)
			}
			continue
		}

		s.wg.Add(1)
		go func(j *model.OptimizationJob) {
			defer s.wg.Done()
			defer func() { <-s.slots }()
			s.runner.Run(ctx, j)
		}(job)
	}
}

// listenNudges drains the dispatch queue and coalesces wake-ups.
func (s *Scheduler) listenNudges(ctx context.Context, nudges chan<- struct{}) {
	for {
		if ctx.Err() != nil {
			return
		}

		msg, err := s.dispatch.Pop(ctx, 2*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("Scheduler: dispatch pop failed: %v", err)
			time.Sleep(time.Second)
			continue
		}
		if msg == nil {
			continue
		}

		select {
		case nudges <- struct{}{}:
		default:
		}
	}
}
