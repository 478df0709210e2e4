package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/skucast/tuning_go_server/internal/api/middleware"
	"github.com/skucast/tuning_go_server/internal/model/dto"
	"github.com/skucast/tuning_go_server/internal/pkg/response"
	"github.com/skucast/tuning_go_server/internal/service"
)

type BatchHandler struct {
	batchService *service.BatchService
}

func NewBatchHandler(batchService *service.BatchService) *BatchHandler {
	return &BatchHandler{
		batchService: batchService,
	}
}

// List returns batch summaries, optionally filtered to one view.
// GET /api/v1/batches?filter=active|completed|failed|skipped
func (h *BatchHandler) List(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	filter := c.Query("filter")
	switch filter {
	case "", dto.BatchFilterActive, dto.BatchFilterCompleted, dto.BatchFilterFailed, dto.BatchFilterSkipped:
	default:
		response.ParamError(c, "unknown filter")
		return
	}

	summaries, err := h.batchService.List(tenantID, filter)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, summaries)
}

// Get returns the roll-up for one batch.
// GET /api/v1/batches/:id
func (h *BatchHandler) Get(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	status, err := h.batchService.GetStatus(tenantID, c.Param("id"))
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, status)
}
