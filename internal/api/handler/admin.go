package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/skucast/tuning_go_server/internal/api/middleware"
	"github.com/skucast/tuning_go_server/internal/pkg/response"
	"github.com/skucast/tuning_go_server/internal/service"
)

// AdminHandler exposes the scheduler controls, maintenance operations and
// the dataset identity provider.
type AdminHandler struct {
	optimizeService *service.OptimizeService
	datasetService  *service.DatasetService
}

func NewAdminHandler(optimizeService *service.OptimizeService, datasetService *service.DatasetService) *AdminHandler {
	return &AdminHandler{
		optimizeService: optimizeService,
		datasetService:  datasetService,
	}
}

type pauseRequest struct {
	Paused *bool `json:"paused" binding:"required"`
}

// SetPause pauses or resumes scheduling for the tenant. Running jobs finish;
// pending ones hold.
// PUT /api/v1/scheduler/pause
func (h *AdminHandler) SetPause(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req pauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.optimizeService.SetPaused(c.Request.Context(), tenantID, *req.Paused); err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"paused": *req.Paused})
}

// Status reports the scheduler view: pause flag, queue depth, job counts and
// cache size.
// GET /api/v1/scheduler/status
func (h *AdminHandler) Status(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	status, err := h.optimizeService.SchedulerStatus(c.Request.Context(), tenantID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, status)
}

// ClearCompleted removes terminal non-failed jobs. The result cache is
// untouched.
// POST /api/v1/maintenance/clear-completed
func (h *AdminHandler) ClearCompleted(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	n, err := h.optimizeService.ClearCompleted(tenantID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"deleted": n})
}

// ResetAll removes every job for the tenant. The result cache is untouched.
// POST /api/v1/maintenance/reset-all
func (h *AdminHandler) ResetAll(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	n, err := h.optimizeService.ResetAll(tenantID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"deleted": n})
}

// ClearCache drops the tenant's cached results, forcing recomputation.
// POST /api/v1/maintenance/clear-cache
func (h *AdminHandler) ClearCache(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	n, err := h.optimizeService.ClearCache(tenantID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"deleted": n})
}

// TouchDataset bumps a dataset's revision after a cleaning pass and returns
// the new identity token.
// POST /api/v1/datasets/:key/touch
func (h *AdminHandler) TouchDataset(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	token, err := h.datasetService.Touch(c.Request.Context(), tenantID, c.Param("key"))
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"dataset_id": token})
}

// DatasetIdentity returns the current identity token for a dataset.
// GET /api/v1/datasets/:key/identity
func (h *AdminHandler) DatasetIdentity(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	token, err := h.datasetService.Identity(c.Request.Context(), tenantID, c.Param("key"))
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{"dataset_id": token})
}
