package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"realtime-service/internal/config"
	"realtime-service/internal/handler"
	"realtime-service/internal/metrics"
	"realtime-service/internal/middleware"
	"realtime-service/internal/service"
	"realtime-service/internal/ws"
)

// SetupRelay wires the relay's HTTP surface: WebSocket rooms, the
// notification API, and the internal notification-creation endpoint.
func SetupRelay(
	cfg *config.Config,
	db *gorm.DB,
	redisClient *redis.Client,
	hub *ws.Hub,
	notificationService *service.NotificationService,
	logger *zap.Logger,
	m *metrics.Metrics,
) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(middleware.Metrics(m))

	wsHandler := ws.NewHandler(hub, cfg.Auth.SecretKey, logger)
	notificationHandler := handler.NewNotificationHandler(notificationService, logger)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group(cfg.Server.BasePath)
	{
		api.GET("/health", healthHandler.Health)
		api.GET("/ready", healthHandler.Ready)

		// WebSocket endpoints authenticate via token query param inside the
		// handler; a websocket upgrade cannot carry an Authorization header
		// from the browser.
		api.GET("/ws/notifications", wsHandler.HandleUserWebSocket)
		api.GET("/ws/tasks/:taskId", wsHandler.HandleTaskWebSocket)

		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(cfg.Auth.SecretKey))
		{
			authenticated.GET("/notifications", notificationHandler.GetNotifications)
			authenticated.GET("/notifications/unread-count", notificationHandler.GetUnreadCount)
			authenticated.PATCH("/notifications/:id/read", notificationHandler.MarkAsRead)
			authenticated.POST("/notifications/read-all", notificationHandler.MarkAllAsRead)
		}

		internal := api.Group("/internal")
		internal.Use(internalAPIKey(cfg.Auth.InternalAPIKey))
		{
			internal.POST("/notifications", notificationHandler.CreateNotification)
		}
	}

	return r
}

// internalAPIKey guards service-to-service endpoints. An empty configured
// key disables the check (local development).
func internalAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key != "" && c.GetHeader("X-Internal-API-Key") != key {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "UNAUTHORIZED",
					"message": "Invalid internal API key",
				},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}
