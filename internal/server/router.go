package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/angie-backend/internal/handlers"
	"github.com/yungbote/angie-backend/internal/middleware"
)

type RouterConfig struct {
	AuthMiddleware   *middleware.AuthMiddleware
	LessonHandler    *handlers.LessonHandler
	SrsHandler       *handlers.SrsHandler
	TelemetryHandler *handlers.TelemetryHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)

	// Protected
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	// Lesson pipeline
	api.POST("/lesson/start", cfg.LessonHandler.StartLesson)
	api.POST("/lesson/turn", cfg.LessonHandler.HandleTurn)
	// Review queue
	api.GET("/srs/due", cfg.SrsHandler.ListDue)
	// Telemetry
	api.POST("/telemetry/batch", cfg.TelemetryHandler.RecordBatch)

	return router
}
