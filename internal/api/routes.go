package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/regradar/internal/metrics"
)

// registerRoutes configures all API routes.
func registerRoutes(router *gin.Engine, configs *ConfigsHandler, tasks *TasksHandler, tracker *metrics.Tracker) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")

	v1.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, tracker.Snapshot())
	})

	v1.GET("/configs", configs.List)
	v1.POST("/configs", configs.Create)
	v1.GET("/configs/:id", configs.Get)
	v1.PUT("/configs/:id", configs.Update)
	v1.PUT("/configs/:id/status", configs.UpdateStatus)
	v1.DELETE("/configs/:id", configs.Delete)
	v1.POST("/configs/:id/trigger", configs.Trigger)
	v1.GET("/configs/:id/logs", tasks.ListByConfig)

	v1.GET("/tasks", tasks.List)
	v1.GET("/tasks/:taskId", tasks.Get)
	v1.POST("/tasks/:taskId/recrawl", tasks.ReCrawl)
	v1.POST("/tasks/:taskId/analyze-policies", tasks.AnalyzePolicies)
	v1.POST("/tasks/:taskId/analyze-competitors", tasks.AnalyzeCompetitors)
}
