package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/786262170/lumina-api/internal/core/port"
	"github.com/786262170/lumina-api/internal/infra/config"
	"github.com/786262170/lumina-api/internal/infra/security"
	"github.com/786262170/lumina-api/internal/transport/http/handlers"
	"github.com/786262170/lumina-api/internal/transport/http/middleware"
	"github.com/786262170/lumina-api/internal/usecase"
)

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Sessions    *usecase.SessionService
	Verifier    *usecase.TokenVerifier
	Codec       *security.TokenCodec
	StoreHealth port.StoreHealth
	HTTPMetrics *middleware.HTTPMetrics
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))
	r.Use(middleware.Logger(deps.Logger))
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Handler())
	}

	authMiddleware := middleware.RequireAuth(deps.Verifier, deps.Logger)

	healthHandler := handlers.NewHealthHandler(deps.StoreHealth)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(deps.Sessions, deps.Codec)

		authGroup := api.Group("/auth")
		authHandler.RegisterPublicRoutes(authGroup)

		protectedGroup := authGroup.Group("")
		protectedGroup.Use(authMiddleware)
		authHandler.RegisterProtectedRoutes(protectedGroup)
	}

	return r
}
