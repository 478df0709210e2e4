package cron

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skucast/tuning_go_server/internal/model"
	"github.com/skucast/tuning_go_server/internal/repository"
	"github.com/skucast/tuning_go_server/internal/testutil"
)

func TestService_RequeueStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := repository.NewJobRepository(db)
	svc := NewService(repo, 10*time.Minute, 0)

	stale := testutil.TestJob(t, db, 1, testutil.WithStatus(model.JobStatusRunning))
	require.NoError(t, db.Model(&model.OptimizationJob{}).
		Where("id = ?", stale.ID).
		Update("updated_at", time.Now().Add(-time.Hour)).Error)

	svc.requeueStale()

	found, err := repo.GetByID(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, found.Status)
}

func TestService_PurgeOldJobs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := repository.NewJobRepository(db)
	svc := NewService(repo, 10*time.Minute, 30*24*time.Hour)

	old := testutil.TestJob(t, db, 1, testutil.WithStatus(model.JobStatusCompleted))
	require.NoError(t, db.Model(&model.OptimizationJob{}).
		Where("id = ?", old.ID).
		Update("updated_at", time.Now().Add(-60*24*time.Hour)).Error)

	recent := testutil.TestJob(t, db, 1,
		testutil.WithSKU("SKU-recent"),
		testutil.WithStatus(model.JobStatusCompleted))

	svc.purgeOldJobs()

	_, err := repo.GetByID(old.ID)
	assert.Error(t, err)

	_, err = repo.GetByID(recent.ID)
	assert.NoError(t, err)
}

func TestService_PurgeDisabledWithZeroRetention(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := repository.NewJobRepository(db)
	svc := NewService(repo, 10*time.Minute, 0)

	old := testutil.TestJob(t, db, 1, testutil.WithStatus(model.JobStatusCompleted))
	require.NoError(t, db.Model(&model.OptimizationJob{}).
		Where("id = ?", old.ID).
		Update("updated_at", time.Now().Add(-365*24*time.Hour)).Error)

	svc.purgeOldJobs()

	_, err := repo.GetByID(old.ID)
	assert.NoError(t, err)
}
