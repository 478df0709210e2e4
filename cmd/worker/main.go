package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/skucast/tuning_go_server/config"
	"github.com/skucast/tuning_go_server/internal/database"
	"github.com/skucast/tuning_go_server/internal/pkg/control"
	"github.com/skucast/tuning_go_server/internal/pkg/cron"
	"github.com/skucast/tuning_go_server/internal/pkg/pubsub"
	"github.com/skucast/tuning_go_server/internal/pkg/queue"
	"github.com/skucast/tuning_go_server/internal/repository"
	"github.com/skucast/tuning_go_server/internal/scheduler"
	"github.com/skucast/tuning_go_server/internal/worker"
)

func main() {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	jobRepo := repository.NewJobRepository(db)
	resultRepo := repository.NewResultRepository(db)

	dispatch := queue.NewQueue(rdb, cfg.Queue.DispatchQueue)
	ctrl := control.New(rdb)
	publisher := pubsub.NewPublisher(rdb)

	optimizer, err := worker.NewOptimizer(&cfg.Engine)
	if err != nil {
		log.Fatalf("Failed to build optimizer: %v", err)
	}
	log.Printf("Optimizer ready (mode: %s)", cfg.Engine.Mode)

	runner := worker.NewRunner(db, jobRepo, resultRepo, optimizer, ctrl, publisher)

	sched := scheduler.New(
		jobRepo,
		dispatch,
		ctrl,
		runner,
		cfg.Scheduler.MaxWorkers,
		cfg.Scheduler.PollInterval,
		cfg.Scheduler.LivenessTimeout,
	)

	cronService := cron.NewService(jobRepo, cfg.Scheduler.LivenessTimeout, cfg.Scheduler.Retention)
	cronService.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	// Blocks until ctx is cancelled, then drains running jobs.
	sched.Run(ctx)

	cronService.Stop()
	log.Println("Worker shutdown complete")
}
