package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skucast/tuning_go_server/internal/model"
	"github.com/skucast/tuning_go_server/internal/testutil"
)

func TestJobRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	job := testutil.TestJob(t, db, 1)

	found, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, found.ID)
	assert.Equal(t, model.JobStatusPending, found.Status)
	assert.Equal(t, job.Fingerprint, found.Fingerprint)
	assert.Equal(t, model.Float64Map{"p": 1, "d": 1, "q": 1}, found.Parameters)
}

func TestJobRepository_GetForTenant_ScopesByTenant(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	job := testutil.TestJob(t, db, 1)

	_, err := repo.GetForTenant(2, job.ID)
	assert.Error(t, err)

	found, err := repo.GetForTenant(1, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, found.ID)
}

func TestJobRepository_FindActive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)

	t.Run("no active job", func(t *testing.T) {
		job, err := repo.FindActive(1, "missing")
		require.NoError(t, err)
		assert.Nil(t, job)
	})

	t.Run("pending job is active", func(t *testing.T) {
		created := testutil.TestJob(t, db, 1)

		job, err := repo.FindActive(1, created.Fingerprint)
		require.NoError(t, err)
		require.NotNil(t, job)
		assert.Equal(t, created.ID, job.ID)
	})

	t.Run("terminal job is not active", func(t *testing.T) {
		created := testutil.TestJob(t, db, 1,
			testutil.WithSKU("SKU-terminal"),
			testutil.WithStatus(model.JobStatusCompleted))

		job, err := repo.FindActive(1, created.Fingerprint)
		require.NoError(t, err)
		assert.Nil(t, job)
	})

	t.Run("other tenant does not match", func(t *testing.T) {
		created := testutil.TestJob(t, db, 3, testutil.WithSKU("SKU-tenant"))

		job, err := repo.FindActive(4, created.Fingerprint)
		require.NoError(t, err)
		assert.Nil(t, job)
	})
}

func TestJobRepository_NextEligible_PriorityThenFIFO(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)

	bulkFirst := testutil.TestJob(t, db, 1,
		testutil.WithSKU("SKU-A"), testutil.WithPriority(model.PriorityBulkImport))
	bulkSecond := testutil.TestJob(t, db, 1,
		testutil.WithSKU("SKU-B"), testutil.WithPriority(model.PriorityBulkImport))
	setup := testutil.TestJob(t, db, 1,
		testutil.WithSKU("SKU-C"), testutil.WithPriority(model.PrioritySetup))

	jobs, err := repo.NextEligible(10, nil)
	require.NoError(t, err)
	require.Len(t, jobs, 3)

	assert.Equal(t, setup.ID, jobs[0].ID)
	assert.Equal(t, bulkFirst.ID, jobs[1].ID)
	assert.Equal(t, bulkSecond.ID, jobs[2].ID)
}

func TestJobRepository_NextEligible_SkipsFingerprintWithRunningJob(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)

	running := testutil.TestJob(t, db, 1, testutil.WithStatus(model.JobStatusRunning))
	// Same fingerprint, still pending: must not be dispatched concurrently.
	blocked := testutil.TestJob(t, db, 1)
	require.Equal(t, running.Fingerprint, blocked.Fingerprint)

	other := testutil.TestJob(t, db, 1, testutil.WithSKU("SKU-other"))

	jobs, err := repo.NextEligible(10, nil)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, other.ID, jobs[0].ID)
}

func TestJobRepository_NextEligible_ExcludesPausedTenants(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)

	testutil.TestJob(t, db, 1)
	visible := testutil.TestJob(t, db, 2, testutil.WithSKU("SKU-t2"))

	jobs, err := repo.NextEligible(10, []int64{1})
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, visible.ID, jobs[0].ID)
}

func TestJobRepository_Claim(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	job := testutil.TestJob(t, db, 1)

	claimed, err := repo.Claim(job.ID)
	require.NoError(t, err)
	assert.True(t, claimed)

	found, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, found.Status)
	assert.NotNil(t, found.StartedAt)

	// Second claim loses.
	claimed, err = repo.Claim(job.ID)
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestJobRepository_UpdateProgress_Monotonic(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	job := testutil.TestJob(t, db, 1, testutil.WithStatus(model.JobStatusRunning))

	require.NoError(t, repo.UpdateProgress(job.ID, 40))
	require.NoError(t, repo.UpdateProgress(job.ID, 20)) // stale report, ignored

	found, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, 40, found.Progress)
}

func TestJobRepository_MarkCompleted(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	job := testutil.TestJob(t, db, 1, testutil.WithStatus(model.JobStatusRunning))

	result := &model.JobResult{
		Scores:    model.Float64Map{"mape": 0.12, "composite": 0.8},
		Forecasts: model.ForecastSeries{{Period: "2026-01", Value: 100}},
	}
	require.NoError(t, repo.MarkCompleted(job.ID, result))

	found, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusCompleted, found.Status)
	assert.Equal(t, 100, found.Progress)
	require.NotNil(t, found.Result)
	assert.Equal(t, 0.12, found.Result.Scores["mape"])
	assert.NotNil(t, found.CompletedAt)
}

func TestJobRepository_MarkFailed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)
	job := testutil.TestJob(t, db, 1, testutil.WithStatus(model.JobStatusRunning))

	require.NoError(t, repo.MarkFailed(job.ID, "did not converge"))

	found, err := repo.GetByID(job.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, found.Status)
	assert.Equal(t, "did not converge", found.ErrorMessage)
	assert.Nil(t, found.Result)
}

func TestJobRepository_CancelPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)

	t.Run("pending is cancelled synchronously", func(t *testing.T) {
		job := testutil.TestJob(t, db, 1)

		ok, err := repo.CancelPending(1, job.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		found, err := repo.GetByID(job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCancelled, found.Status)
	})

	t.Run("running is not cancelled here", func(t *testing.T) {
		job := testutil.TestJob(t, db, 1,
			testutil.WithSKU("SKU-running"),
			testutil.WithStatus(model.JobStatusRunning))

		ok, err := repo.CancelPending(1, job.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("wrong tenant cannot cancel", func(t *testing.T) {
		job := testutil.TestJob(t, db, 1, testutil.WithSKU("SKU-cross"))

		ok, err := repo.CancelPending(2, job.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestJobRepository_RequeueStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)

	stale := testutil.TestJob(t, db, 1, testutil.WithStatus(model.JobStatusRunning))
	// Backdate the last heartbeat.
	require.NoError(t, db.Model(&model.OptimizationJob{}).
		Where("id = ?", stale.ID).
		Update("updated_at", time.Now().Add(-time.Hour)).Error)

	fresh := testutil.TestJob(t, db, 1,
		testutil.WithSKU("SKU-fresh"),
		testutil.WithStatus(model.JobStatusRunning))

	n, err := repo.RequeueStale(time.Now().Add(-10 * time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, err := repo.GetByID(stale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusPending, found.Status)

	found, err = repo.GetByID(fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusRunning, found.Status)
}

func TestJobRepository_CountByBatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)

	testutil.TestJob(t, db, 1, testutil.WithBatch("b1"), testutil.WithSKU("S1"))
	testutil.TestJob(t, db, 1, testutil.WithBatch("b1"), testutil.WithSKU("S2"),
		testutil.WithStatus(model.JobStatusCompleted))
	testutil.TestJob(t, db, 1, testutil.WithBatch("b1"), testutil.WithSKU("S3"),
		testutil.WithStatus(model.JobStatusCompleted))
	testutil.TestJob(t, db, 1, testutil.WithBatch("b2"), testutil.WithSKU("S4"))

	counts, err := repo.CountByBatch(1, "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[model.JobStatusPending])
	assert.Equal(t, int64(2), counts[model.JobStatusCompleted])
	assert.Zero(t, counts[model.JobStatusFailed])
}

func TestJobRepository_DeleteCompleted_KeepsFailedAndActive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)

	testutil.TestJob(t, db, 1, testutil.WithSKU("S1"), testutil.WithStatus(model.JobStatusCompleted))
	testutil.TestJob(t, db, 1, testutil.WithSKU("S2"), testutil.WithStatus(model.JobStatusSkipped))
	testutil.TestJob(t, db, 1, testutil.WithSKU("S3"), testutil.WithStatus(model.JobStatusCancelled))
	failed := testutil.TestJob(t, db, 1, testutil.WithSKU("S4"), testutil.WithStatus(model.JobStatusFailed))
	pending := testutil.TestJob(t, db, 1, testutil.WithSKU("S5"))

	n, err := repo.DeleteCompleted(1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	counts, err := repo.CountByStatus(1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[model.JobStatusFailed])
	assert.Equal(t, int64(1), counts[model.JobStatusPending])

	_, err = repo.GetByID(failed.ID)
	assert.NoError(t, err)
	_, err = repo.GetByID(pending.ID)
	assert.NoError(t, err)
}

func TestJobRepository_DeleteAll_ScopedByTenant(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewJobRepository(db)

	testutil.TestJob(t, db, 1)
	testutil.TestJob(t, db, 1, testutil.WithSKU("S2"))
	other := testutil.TestJob(t, db, 2, testutil.WithSKU("S3"))

	n, err := repo.DeleteAll(1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = repo.GetByID(other.ID)
	assert.NoError(t, err)
}
