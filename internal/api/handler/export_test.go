package handler

import (
	"encoding/csv"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skucast/tuning_go_server/internal/model"
	"github.com/skucast/tuning_go_server/internal/model/dto"
	"github.com/skucast/tuning_go_server/internal/pkg/response"
	"github.com/skucast/tuning_go_server/internal/testutil"
)

func exportRouter(env *handlerEnv, tenantID int64) *gin.Engine {
	h := NewExportHandler(env.export)
	router := gin.New()
	group := router.Group("", mockAuth(tenantID))
	group.GET("/export/results", h.Results)
	return router
}

func seedResult(t *testing.T, env *handlerEnv, sku string, composite float64) {
	t.Helper()
	job := testutil.TestJob(t, env.db, 1,
		testutil.WithStatus(model.JobStatusCompleted),
		testutil.WithSKU(sku))
	testutil.TestResult(t, env.db, job, composite)
}

func TestExportResults_CSV(t *testing.T) {
	env := setupHandlerEnv(t)
	router := exportRouter(env, 1)

	seedResult(t, env, "SKU-001", 0.9)

	req := httptest.NewRequest("GET", "/export/results", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")

	records, err := csv.NewReader(strings.NewReader(w.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "SKU-001", records[1][0])
}

func TestExportResults_JSON(t *testing.T) {
	env := setupHandlerEnv(t)
	router := exportRouter(env, 1)

	seedResult(t, env, "SKU-001", 0.9)
	seedResult(t, env, "SKU-002", 0.7)

	req := httptest.NewRequest("GET", "/export/results?format=json", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	var rows []dto.ExportRow
	decodeData(t, resp, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "SKU-001", rows[0].SKU)
}

func TestExportResults_SKUFilter(t *testing.T) {
	env := setupHandlerEnv(t)
	router := exportRouter(env, 1)

	seedResult(t, env, "SKU-001", 0.9)
	seedResult(t, env, "SKU-002", 0.7)

	req := httptest.NewRequest("GET", "/export/results?format=json&sku=SKU-002", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	var rows []dto.ExportRow
	decodeData(t, resp, &rows)
	require.Len(t, rows, 1)
	assert.Equal(t, "SKU-002", rows[0].SKU)
}

func TestExportResults_SnapshotWithoutOSS(t *testing.T) {
	env := setupHandlerEnv(t)
	router := exportRouter(env, 1)

	seedResult(t, env, "SKU-001", 0.9)

	req := httptest.NewRequest("GET", "/export/results?snapshot=true", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	var data map[string]string
	decodeData(t, resp, &data)
	assert.Empty(t, data["url"])
}

func TestExportResults_TenantScoped(t *testing.T) {
	env := setupHandlerEnv(t)
	router := exportRouter(env, 1)

	otherJob := testutil.TestJob(t, env.db, 2, testutil.WithStatus(model.JobStatusCompleted))
	testutil.TestResult(t, env.db, otherJob, 0.9)

	req := httptest.NewRequest("GET", "/export/results?format=json", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	var rows []dto.ExportRow
	decodeData(t, resp, &rows)
	assert.Empty(t, rows)
}
