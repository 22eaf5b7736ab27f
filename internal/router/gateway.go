package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"realtime-service/internal/bus"
	"realtime-service/internal/client"
	"realtime-service/internal/config"
	"realtime-service/internal/handler"
	"realtime-service/internal/metrics"
	"realtime-service/internal/middleware"
	"realtime-service/internal/service"
)

// SetupGateway wires the producer-gateway HTTP surface: comment submission
// and history fetch, both backed by the bus.
func SetupGateway(
	cfg *config.Config,
	b bus.Bus,
	s3Client client.S3ClientInterface,
	redisClient *redis.Client,
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

	publishService := service.NewCommentPublishService(b, s3Client, logger, m)
	fetchService := service.NewCommentFetchService(b, cfg.Relay.FetchTimeout.Std(), logger, m)

	commentHandler := handler.NewCommentHandler(publishService, fetchService, logger)
	healthHandler := handler.NewHealthHandler(nil, redisClient)

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group(cfg.Server.BasePath)
	{
		api.GET("/health", healthHandler.Health)
		api.GET("/ready", healthHandler.Ready)

		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(cfg.Auth.SecretKey))
		{
			authenticated.POST("/tasks/:taskId/comments", commentHandler.SubmitComment)
			authenticated.GET("/tasks/:taskId/comments", commentHandler.GetComments)
		}
	}

	return r
}
