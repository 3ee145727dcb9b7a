package http

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dental-captcha/internal/bootstrap"
	"dental-captcha/internal/transport/http/handler"
	"dental-captcha/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App, logger *slog.Logger) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.RequestID(), middleware.RequestLogger(logger), gin.Recovery())

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/healthz", healthHandler.Check)
	if registry := app.Metrics.Registry(); registry != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})))
	}

	services := app.Services
	authHandler := handler.NewAuthHandler(services.Auth)
	sessionHandler := handler.NewSessionHandler(services.Sessions)
	annotationHandler := handler.NewAnnotationHandler(services.Annotations)
	statsHandler := handler.NewStatsHandler(services.Stats)
	adminHandler := handler.NewAdminHandler(services.Catalog, services.Auth, services.Stats)

	requireAuth := middleware.AuthJWT(app.Config.Auth.JWTSecret)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.GET("/me", requireAuth, authHandler.Me)
	authGroup.PUT("/consent", requireAuth, authHandler.UpdateConsent)

	sessionGroup := v1.Group("/sessions")
	sessionGroup.Use(requireAuth)
	sessionGroup.GET("/next", sessionHandler.Next)
	sessionGroup.GET("", sessionHandler.List)
	sessionGroup.GET("/:id", sessionHandler.Get)
	sessionGroup.DELETE("/:id", sessionHandler.Delete)

	annotationGroup := v1.Group("/annotations")
	annotationGroup.Use(requireAuth)
	annotationGroup.POST("", annotationHandler.Submit)
	annotationGroup.GET("/me", annotationHandler.ListMine)

	statsGroup := v1.Group("/stats")
	statsGroup.Use(requireAuth)
	statsGroup.GET("/me", statsHandler.Me)
	statsGroup.GET("/leaderboard", statsHandler.Leaderboard)

	adminGroup := v1.Group("/admin")
	adminGroup.Use(requireAuth, middleware.RequireAdmin(services.Auth))
	adminGroup.POST("/images", adminHandler.ImportImages)
	adminGroup.POST("/questions", adminHandler.ImportQuestions)
	adminGroup.GET("/questions", adminHandler.ListQuestions)
	adminGroup.DELETE("/questions/:id", adminHandler.DeactivateQuestion)
	adminGroup.POST("/users/promote", adminHandler.PromoteUser)
	adminGroup.POST("/users/demote", adminHandler.DemoteUser)
	adminGroup.GET("/stats/users", adminHandler.UserReport)

	return router
}
