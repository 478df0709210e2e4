package service

import (
	"encoding/csv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/skucast/tuning_go_server/internal/model"
	"github.com/skucast/tuning_go_server/internal/repository"
	"github.com/skucast/tuning_go_server/internal/testutil"
)

func setupExport(t *testing.T) (*gorm.DB, *ExportService) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	return db, NewExportService(repository.NewResultRepository(db), nil)
}

func exportFixture(t *testing.T, db *gorm.DB, sku string, params map[string]float64, composite float64) {
	t.Helper()
	job := testutil.TestJob(t, db, 1,
		testutil.WithStatus(model.JobStatusCompleted),
		testutil.WithSKU(sku),
		testutil.WithParameters(params),
	)
	testutil.TestResult(t, db, job, composite)
}

func TestExportRows(t *testing.T) {
	db, svc := setupExport(t)

	exportFixture(t, db, "SKU-001", map[string]float64{"p": 1, "d": 1, "q": 1}, 0.9)
	exportFixture(t, db, "SKU-002", map[string]float64{"p": 2, "d": 1, "q": 1}, 0.7)

	rows, err := svc.Rows(1, "", "", false)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Ordered best composite first.
	assert.Equal(t, "SKU-001", rows[0].SKU)
	assert.Equal(t, 0.9, rows[0].CompositeScore)
	assert.Contains(t, rows[0].Parameters, `"p":1`)
	assert.Equal(t, 0.12, rows[0].MAPE)
}

func TestExportRows_SKUFilter(t *testing.T) {
	db, svc := setupExport(t)

	exportFixture(t, db, "SKU-001", map[string]float64{"p": 1}, 0.9)
	exportFixture(t, db, "SKU-002", map[string]float64{"p": 2}, 0.7)

	rows, err := svc.Rows(1, "", "SKU-002", false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "SKU-002", rows[0].SKU)
}

func TestExportRows_BestOnly(t *testing.T) {
	db, svc := setupExport(t)

	// Same SKU/model/method with different parameter sets.
	exportFixture(t, db, "SKU-001", map[string]float64{"p": 1}, 0.6)
	exportFixture(t, db, "SKU-001", map[string]float64{"p": 2}, 0.9)
	exportFixture(t, db, "SKU-002", map[string]float64{"p": 1}, 0.7)

	rows, err := svc.Rows(1, "", "", true)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "SKU-001", rows[0].SKU)
	assert.Equal(t, 0.9, rows[0].CompositeScore)
	assert.Equal(t, "SKU-002", rows[1].SKU)
}

func TestExportCSV(t *testing.T) {
	db, svc := setupExport(t)

	exportFixture(t, db, "SKU-001", map[string]float64{"p": 1}, 0.9)

	rows, err := svc.Rows(1, "", "", false)
	require.NoError(t, err)

	data, err := svc.CSV(rows)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "sku", records[0][0])
	assert.Equal(t, "composite_score", records[0][9])
	assert.Equal(t, "SKU-001", records[1][0])
	assert.Equal(t, "0.9", records[1][9])
}

func TestExportCSV_Empty(t *testing.T) {
	_, svc := setupExport(t)

	data, err := svc.CSV(nil)
	require.NoError(t, err)

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1) // header only
}

func TestExportSnapshot_NoOSSConfigured(t *testing.T) {
	_, svc := setupExport(t)

	url, err := svc.Snapshot(1, []byte("sku\n"))
	require.NoError(t, err)
	assert.Empty(t, url)
}
