package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/animuse/animuse/internal/domain/auth"
	"github.com/animuse/animuse/internal/infra/config"
)

// NewRouter wires up the HTTP handlers and returns a configured server.
func NewRouter(cfg *config.Config, handler *Handler, verifier auth.Verifier, logger *slog.Logger) *http.Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		requestLogger(logger),
		corsMiddleware(cfg.HTTP.AllowedOrigins),
		errorHandlingMiddleware(logger),
	)

	router.GET("/healthz", handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	api.Use(rateLimitMiddleware(cfg.HTTP.RateLimit, logger), authMiddleware(verifier))
	{
		api.GET("/profile", handler.GetProfile)
		api.PUT("/profile", handler.UpdateProfile)
		api.POST("/watchlist", handler.RecordWatchlist)

		api.POST("/dashboard/events", handler.DashboardEvent)
		api.POST("/session/end", handler.EndSession)

		api.GET("/recommendations", handler.Recommendations)
		api.POST("/recommendations/refresh", handler.RefreshRecommendations)

		api.GET("/notifications", handler.Notifications)
		api.GET("/notifications/stream", handler.NotificationStream)
	}

	return &http.Server{
		Addr:           cfg.HTTP.Address,
		Handler:        withRetry(router, cfg.HTTP.Retry, logger),
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		MaxHeaderBytes: 1 << 20,
	}
}
