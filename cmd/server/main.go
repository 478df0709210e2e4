package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skucast/tuning_go_server/config"
	"github.com/skucast/tuning_go_server/internal/api"
	"github.com/skucast/tuning_go_server/internal/api/handler"
	"github.com/skucast/tuning_go_server/internal/database"
	"github.com/skucast/tuning_go_server/internal/pkg/control"
	"github.com/skucast/tuning_go_server/internal/pkg/lock"
	"github.com/skucast/tuning_go_server/internal/pkg/oss"
	"github.com/skucast/tuning_go_server/internal/pkg/pubsub"
	"github.com/skucast/tuning_go_server/internal/pkg/queue"
	"github.com/skucast/tuning_go_server/internal/pkg/ws"
	"github.com/skucast/tuning_go_server/internal/repository"
	"github.com/skucast/tuning_go_server/internal/service"
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

	// OSS is optional; exports fall back to direct download.
	var ossClient *oss.Client
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err = oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Printf("Warning: Failed to init OSS client: %v", err)
		} else {
			log.Println("OSS client initialized")
		}
	}

	jobRepo := repository.NewJobRepository(db)
	resultRepo := repository.NewResultRepository(db)

	dispatch := queue.NewQueue(rdb, cfg.Queue.DispatchQueue)
	ctrl := control.New(rdb)
	locker := lock.NewLocker(rdb)

	datasetService := service.NewDatasetService(rdb)
	optimizeService := service.NewOptimizeService(db, jobRepo, resultRepo, locker, dispatch, ctrl, datasetService)
	batchService := service.NewBatchService(jobRepo)
	exportService := service.NewExportService(resultRepo, ossClient)

	wsHub := ws.NewHub()

	// Fan job progress out to the tenant's WebSocket connections.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subscriber := pubsub.NewSubscriber(rdb)
	go func() {
		err := subscriber.Subscribe(ctx, func(msg *pubsub.ProgressMessage) {
			if err := wsHub.SendToTenant(msg.TenantID, &ws.Message{Type: msg.Type, Data: msg}); err != nil {
				log.Printf("Failed to push progress to tenant %d: %v", msg.TenantID, err)
			}
		})
		if err != nil && ctx.Err() == nil {
			log.Printf("Progress subscription ended: %v", err)
		}
	}()

	optimizeHandler := handler.NewOptimizeHandler(optimizeService)
	batchHandler := handler.NewBatchHandler(batchService)
	adminHandler := handler.NewAdminHandler(optimizeService, datasetService)
	exportHandler := handler.NewExportHandler(exportService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret)

	router := api.NewRouter(
		optimizeHandler,
		batchHandler,
		adminHandler,
		exportHandler,
		websocketHandler,
		cfg,
	)
	engine := router.Setup()

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Println("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	log.Println("Server shutdown complete")
}
