package api

import (
	"github.com/gin-gonic/gin"

	"github.com/skucast/tuning_go_server/config"
	"github.com/skucast/tuning_go_server/internal/api/handler"
	"github.com/skucast/tuning_go_server/internal/api/middleware"
)

type Router struct {
	optimizeHandler  *handler.OptimizeHandler
	batchHandler     *handler.BatchHandler
	adminHandler     *handler.AdminHandler
	exportHandler    *handler.ExportHandler
	websocketHandler *handler.WebSocketHandler
	cfg              *config.Config
}

func NewRouter(
	optimizeHandler *handler.OptimizeHandler,
	batchHandler *handler.BatchHandler,
	adminHandler *handler.AdminHandler,
	exportHandler *handler.ExportHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
) *Router {
	return &Router{
		optimizeHandler:  optimizeHandler,
		batchHandler:     batchHandler,
		adminHandler:     adminHandler,
		exportHandler:    exportHandler,
		websocketHandler: websocketHandler,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := engine.Group("/api/v1")
	{
		// WebSocket carries its token in the query string.
		api.GET("/ws", r.websocketHandler.Handle)

		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// Tuning jobs
			optimizations := authenticated.Group("/optimizations")
			{
				optimizations.POST("", r.optimizeHandler.Submit)
				optimizations.GET("/:id", r.optimizeHandler.Get)
				optimizations.DELETE("/:id", r.optimizeHandler.Cancel)
			}

			// Batch views
			batches := authenticated.Group("/batches")
			{
				batches.GET("", r.batchHandler.List)
				batches.GET("/:id", r.batchHandler.Get)
			}

			// Scheduler controls
			scheduler := authenticated.Group("/scheduler")
			{
				scheduler.PUT("/pause", r.adminHandler.SetPause)
				scheduler.GET("/status", r.adminHandler.Status)
			}

			// Maintenance
			maintenance := authenticated.Group("/maintenance")
			{
				maintenance.POST("/clear-completed", r.adminHandler.ClearCompleted)
				maintenance.POST("/reset-all", r.adminHandler.ResetAll)
				maintenance.POST("/clear-cache", r.adminHandler.ClearCache)
			}

			// Dataset identity
			datasets := authenticated.Group("/datasets")
			{
				datasets.POST("/:key/touch", r.adminHandler.TouchDataset)
				datasets.GET("/:key/identity", r.adminHandler.DatasetIdentity)
			}

			// Export
			authenticated.GET("/export/results", r.exportHandler.Results)
		}
	}

	return engine
}
