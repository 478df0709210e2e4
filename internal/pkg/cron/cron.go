// Package cron runs the periodic maintenance tasks that keep the job store
// healthy: requeueing stale running jobs and purging old terminal rows.
package cron

import (
	"log"
	"time"

	"github.com/skucast/tuning_go_server/internal/repository"
)

type Service struct {
	jobRepo         *repository.JobRepository
	livenessTimeout time.Duration
	retention       time.Duration
	interval        time.Duration
	stopChan        chan struct{}
}

func NewService(
	jobRepo *repository.JobRepository,
	livenessTimeout time.Duration,
	retention time.Duration,
) *Service {
	return &Service{
		jobRepo:         jobRepo,
		livenessTimeout: livenessTimeout,
		retention:       retention,
		interval:        time.Hour,
		stopChan:        make(chan struct{}),
	}
}

// Start launches the maintenance loop.
func (s *Service) Start() {
	go s.run()
	log.Println("Cron service started (stale requeue + retention purge)")
}

// Stop terminates the maintenance loop.
func (s *Service) Stop() {
	close(s.stopChan)
	log.Println("Cron service stopped")
}

func (s *Service) run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.requeueStale()
			s.purgeOldJobs()
		}
	}
}

func (s *Service) requeueStale() {
	n, err := s.jobRepo.RequeueStale(time.Now().Add(-s.livenessTimeout))
	if err != nil {
		log.Printf("Cron: failed to requeue stale jobs: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Cron: requeued %d stale running jobs", n)
	}
}

func (s *Service) purgeOldJobs() {
	if s.retention <= 0 {
		return
	}
	n, err := s.jobRepo.DeleteTerminalBefore(time.Now().Add(-s.retention))
	if err != nil {
		log.Printf("Cron: failed to purge old jobs: %v", err)
		return
	}
	if n > 0 {
		log.Printf("Cron: purged %d terminal jobs past retention", n)
	}
}
