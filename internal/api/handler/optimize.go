package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/skucast/tuning_go_server/internal/api/middleware"
	"github.com/skucast/tuning_go_server/internal/model/dto"
	"github.com/skucast/tuning_go_server/internal/pkg/response"
	"github.com/skucast/tuning_go_server/internal/service"
)

type OptimizeHandler struct {
	optimizeService *service.OptimizeService
}

func NewOptimizeHandler(optimizeService *service.OptimizeService) *OptimizeHandler {
	return &OptimizeHandler{
		optimizeService: optimizeService,
	}
}

// Submit resolves one or more tuning requests against the cache and the
// in-flight jobs.
// POST /api/v1/optimizations
func (h *OptimizeHandler) Submit(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req dto.SubmitOptimizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	resp, err := h.optimizeService.Submit(c.Request.Context(), tenantID, &req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			response.ParamError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, resp)
}

// Get returns one job. Skipped jobs carry the live state of the job they
// merged into.
// GET /api/v1/optimizations/:id
func (h *OptimizeHandler) Get(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	jobID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid job id")
		return
	}

	detail, err := h.optimizeService.GetJob(tenantID, jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			response.NotFoundError(c, err.Error())
			return
		}
		response.ServerError(c, "")
		return
	}

	response.Success(c, detail)
}

// Cancel cancels a pending job immediately or requests cooperative
// cancellation of a running one.
// DELETE /api/v1/optimizations/:id
func (h *OptimizeHandler) Cancel(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	jobID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "invalid job id")
		return
	}

	result, err := h.optimizeService.Cancel(c.Request.Context(), tenantID, jobID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrJobNotFound):
			response.NotFoundError(c, err.Error())
		case errors.Is(err, service.ErrJobNotCancellable):
			response.ConflictError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.Success(c, result)
}
