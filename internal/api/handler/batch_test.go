package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skucast/tuning_go_server/internal/model"
	"github.com/skucast/tuning_go_server/internal/model/dto"
	"github.com/skucast/tuning_go_server/internal/pkg/response"
	"github.com/skucast/tuning_go_server/internal/testutil"
)

func batchRouter(env *handlerEnv, tenantID int64) *gin.Engine {
	h := NewBatchHandler(env.batches)
	router := gin.New()
	group := router.Group("", mockAuth(tenantID))
	group.GET("/batches", h.List)
	group.GET("/batches/:id", h.Get)
	return router
}

func TestBatchList(t *testing.T) {
	env := setupHandlerEnv(t)
	router := batchRouter(env, 1)

	testutil.TestJob(t, env.db, 1, testutil.WithBatch("batch-a"))
	testutil.TestJob(t, env.db, 1,
		testutil.WithBatch("batch-b"),
		testutil.WithStatus(model.JobStatusCompleted),
		testutil.WithSKU("SKU-002"))

	req := httptest.NewRequest("GET", "/batches", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	var summaries []dto.BatchSummary
	decodeData(t, resp, &summaries)
	require.Len(t, summaries, 2)
}

func TestBatchList_Filter(t *testing.T) {
	env := setupHandlerEnv(t)
	router := batchRouter(env, 1)

	testutil.TestJob(t, env.db, 1, testutil.WithBatch("batch-a"))
	testutil.TestJob(t, env.db, 1,
		testutil.WithBatch("batch-b"),
		testutil.WithStatus(model.JobStatusCompleted),
		testutil.WithSKU("SKU-002"))

	req := httptest.NewRequest("GET", "/batches?filter=active", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	var summaries []dto.BatchSummary
	decodeData(t, resp, &summaries)
	require.Len(t, summaries, 1)
	assert.Equal(t, "batch-a", summaries[0].BatchID)
}

func TestBatchList_UnknownFilter(t *testing.T) {
	env := setupHandlerEnv(t)
	router := batchRouter(env, 1)

	req := httptest.NewRequest("GET", "/batches?filter=weird", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := parseResponse(t, w)
	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestBatchGet(t *testing.T) {
	env := setupHandlerEnv(t)
	router := batchRouter(env, 1)

	testutil.TestJob(t, env.db, 1,
		testutil.WithBatch("batch-a"),
		testutil.WithStatus(model.JobStatusCompleted))
	testutil.TestJob(t, env.db, 1,
		testutil.WithBatch("batch-a"),
		testutil.WithSKU("SKU-002"))

	req := httptest.NewRequest("GET", "/batches/batch-a", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	resp := parseResponse(t, w)
	require.Equal(t, response.CodeSuccess, resp.Code)

	var status dto.BatchStatus
	decodeData(t, resp, &status)
	assert.Equal(t, int64(2), status.TotalJobs)
	assert.Equal(t, 50, status.Progress)
}
