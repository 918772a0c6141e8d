package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/chemlabel/chemdoc-processor/api/handlers"
	"github.com/chemlabel/chemdoc-processor/api/middleware"
)

// SetupRoutes 配置所有路由
func SetupRoutes(r *gin.Engine, h *handlers.Handlers) {
	// 全局中间件
	r.Use(middleware.CORS())

	// API 版本组
	v1 := r.Group("/api/v1")
	v1.Use(middleware.CORS())

	// 批次处理路由组
	batches := v1.Group("/batches")
	{
		batches.POST("/process", h.Batch.ProcessBatch)
		batches.GET("/status/:batchId", h.Batch.GetStatus)
		batches.GET("/result/:batchId", h.Batch.DownloadResult)
		batches.DELETE("/task/:batchId", h.Batch.CancelTask)
	}
}
