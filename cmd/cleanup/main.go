package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/skucast/tuning_go_server/config"
	"github.com/skucast/tuning_go_server/internal/model"
	"github.com/skucast/tuning_go_server/internal/repository"
)

var (
	dryRun       = flag.Bool("dry-run", true, "Dry run mode, don't actually modify rows")
	requeueStale = flag.Bool("requeue-stale", true, "Requeue running jobs past the liveness timeout")
	purgeJobs    = flag.Bool("purge-jobs", false, "Delete terminal jobs older than -retention-days")
	retention    = flag.Int("retention-days", 30, "Days to keep terminal jobs when purging")
)

func main() {
	flag.Parse()

	log.Println("Starting job store maintenance...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := connectDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	jobRepo := repository.NewJobRepository(db)

	requeued := int64(0)
	purged := int64(0)

	// 1. Requeue running jobs whose worker went silent.
	if *requeueStale {
		cutoff := time.Now().Add(-cfg.Scheduler.LivenessTimeout)
		log.Printf("\nRequeueing running jobs with no update since %s...", cutoff.Format(time.RFC3339))
		if *dryRun {
			requeued = countStale(db, cutoff)
		} else {
			requeued, err = jobRepo.RequeueStale(cutoff)
			if err != nil {
				log.Printf("Failed to requeue stale jobs: %v", err)
			}
		}
		log.Printf("Stale running jobs: %d", requeued)
	}

	// 2. Purge old terminal jobs.
	if *purgeJobs {
		cutoff := time.Now().Add(-time.Duration(*retention) * 24 * time.Hour)
		log.Printf("\nPurging terminal jobs older than %d days...", *retention)
		if *dryRun {
			purged = countTerminalBefore(db, cutoff)
		} else {
			purged, err = jobRepo.DeleteTerminalBefore(cutoff)
			if err != nil {
				log.Printf("Failed to purge terminal jobs: %v", err)
			}
		}
		log.Printf("Terminal jobs past retention: %d", purged)
	}

	// 3. Current store statistics.
	log.Println("\nScanning job store...")
	var statusCounts []struct {
		Status string
		N      int64
	}
	db.Model(&model.OptimizationJob{}).
		Select("status, COUNT(*) as n").
		Group("status").
		Scan(&statusCounts)

	var cacheSize int64
	db.Model(&model.OptimizationResult{}).Count(&cacheSize)

	log.Println("\n" + strings.Repeat("=", 60))
	log.Println("Maintenance Summary")
	log.Println(strings.Repeat("=", 60))
	for _, row := range statusCounts {
		log.Printf("Jobs %-10s %d", row.Status+":", row.N)
	}
	log.Printf("Cached results: %d", cacheSize)
	log.Printf("Requeued: %d", requeued)
	log.Printf("Purged: %d", purged)
	if *dryRun {
		log.Println("\nDRY RUN MODE - no rows were modified")
		log.Println("   Run with -dry-run=false to apply changes")
	} else {
		log.Println("\nMaintenance completed")
	}
	log.Println(strings.Repeat("=", 60))
}

func countStale(db *gorm.DB, cutoff time.Time) int64 {
	var n int64
	db.Model(&model.OptimizationJob{}).
		Where("status = ? AND updated_at < ?", model.JobStatusRunning, cutoff).
		Count(&n)
	return n
}

// countTerminalBefore must match DeleteTerminalBefore's filter so the
// dry-run count equals what -dry-run=false would delete.
func countTerminalBefore(db *gorm.DB, cutoff time.Time) int64 {
	var n int64
	db.Model(&model.OptimizationJob{}).
		Where("status IN ? AND updated_at < ?", []string{
			model.JobStatusCompleted,
			model.JobStatusFailed,
			model.JobStatusCancelled,
			model.JobStatusSkipped,
		}, cutoff).
		Count(&n)
	return n
}

func connectDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	return db, nil
}
