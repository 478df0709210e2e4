package handler

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/skucast/tuning_go_server/internal/api/middleware"
	"github.com/skucast/tuning_go_server/internal/pkg/response"
	"github.com/skucast/tuning_go_server/internal/service"
)

type ExportHandler struct {
	exportService *service.ExportService
}

func NewExportHandler(exportService *service.ExportService) *ExportHandler {
	return &ExportHandler{
		exportService: exportService,
	}
}

// Results streams the tuned-parameter export. format=json returns rows,
// anything else downloads CSV. best_only=true keeps only the top result per
// (sku, model, method).
// GET /api/v1/export/results?dataset=&sku=&best_only=&format=
func (h *ExportHandler) Results(c *gin.Context) {
	tenantID, ok := middleware.GetTenantID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	datasetID := c.Query("dataset")
	sku := c.Query("sku")
	bestOnly := c.Query("best_only") == "true"

	rows, err := h.exportService.Rows(tenantID, datasetID, sku, bestOnly)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	if c.Query("format") == "json" {
		response.Success(c, rows)
		return
	}

	data, err := h.exportService.CSV(rows)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	// snapshot=true uploads the CSV to object storage and returns its URL
	// instead of streaming the file.
	if c.Query("snapshot") == "true" {
		url, err := h.exportService.Snapshot(tenantID, data)
		if err != nil {
			response.ServerError(c, "")
			return
		}
		response.Success(c, gin.H{"url": url})
		return
	}

	filename := fmt.Sprintf("tuning_results_%s.csv", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(200, "text/csv", data)
}
