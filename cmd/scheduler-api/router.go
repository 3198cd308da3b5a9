package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/noah-isme/academy-scheduler/internal/app"
	"github.com/noah-isme/academy-scheduler/internal/handler"
	internalmiddleware "github.com/noah-isme/academy-scheduler/internal/middleware"
	"github.com/noah-isme/academy-scheduler/pkg/config"
	"github.com/noah-isme/academy-scheduler/pkg/logger"
	corsmiddleware "github.com/noah-isme/academy-scheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/academy-scheduler/pkg/middleware/requestid"
)

func newRouter(c *app.Container) *gin.Engine {
	cfg := c.Config

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(c.Logger))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if cfg.Metrics.Enabled {
		r.Use(internalmiddleware.Metrics(c.Metrics))
	}

	deps := map[string]handler.Pinger{"postgres": c.DB}
	if c.Redis != nil {
		deps["redis"] = app.RedisPinger{Client: c.Redis}
	}
	metricsHandler := handler.NewMetricsHandler(c.Metrics, deps)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	if cfg.Metrics.Enabled {
		r.GET("/metrics", metricsHandler.Prometheus)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	if cfg.Metrics.Enabled {
		api.GET("/metrics/summary", metricsHandler.Summary)
	}

	lessonHandler := handler.NewLessonHandler(c.Lessons)
	api.POST("/lessons", lessonHandler.Create)
	api.DELETE("/lessons/:id", lessonHandler.Delete)
	api.GET("/class-groups/:id/lessons", lessonHandler.List)
	api.DELETE("/class-groups/:id/lessons", lessonHandler.Clear)

	if cfg.Scheduler.Enabled {
		generatorHandler := handler.NewLessonGeneratorHandler(c.Generator, c.Runs)
		api.POST("/class-groups/:id/lessons/generate", generatorHandler.Generate)
		api.GET("/generation-runs/:id", generatorHandler.RunStatus)
	}

	return r
}
