package router

import (
	"github.com/gin-gonic/gin"
	"github.com/user/moovibe/internal/handler"
	"github.com/user/moovibe/internal/middleware"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", h.Health)

	// ==================== JSON API ====================
	api := r.Group("/api")
	api.Use(middleware.OptionalAuth(h.Config.AppSecret))
	{
		api.POST("/ingest", h.TriggerIngest)
		api.POST("/ingest/backfill", h.Backfill)
		api.GET("/recommend", h.GetRecommend)
		api.GET("/content/:id", h.GetContent)
	}
}
