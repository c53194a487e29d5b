package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/geocoder89/userhub/internal/auth"
	"github.com/geocoder89/userhub/internal/config"
	"github.com/geocoder89/userhub/internal/http/handlers"
	"github.com/geocoder89/userhub/internal/http/middlewares"
	"github.com/geocoder89/userhub/internal/observability"
	"github.com/geocoder89/userhub/internal/policy"
	"github.com/geocoder89/userhub/internal/repo/postgres"
)

func NewRouter(log *slog.Logger, pool *pgxpool.Pool, rdb *redis.Client, cfg config.Config, prom *observability.Prom) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(cfg.CORSAllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(1 << 20))
	r.Use(middlewares.RequireJSON())
	r.Use(otelgin.Middleware("userhub"))

	if prom != nil {
		r.Use(prom.GinHandleMiddleware())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	// health

	ping := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				return err
			}
		}

		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return err
			}
		}

		return nil
	}

	health := handlers.NewHealthHandler(ping)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	// wire up the user pipeline

	usersRepo := postgres.NewUsersRepo(pool, prom)
	jwtManager := auth.NewManager(cfg.JWTSecret, cfg.AccessTTL())

	var revocations middlewares.RevocationChecker
	var revoker handlers.TokenRevoker

	if rdb != nil {
		store := auth.NewRevocationStore(rdb)
		revocations = store
		revoker = store
	}

	authMiddleware := middlewares.NewAuthMiddleware(jwtManager, revocations)

	usersHandler := handlers.NewUsersHandler(usersRepo, policy.NewEvaluator())
	authHandler := handlers.NewAuthHandler(usersRepo, jwtManager, revoker, cfg.Env == "prod")

	authLimiter := middlewares.NewRateLimiter(10, time.Minute)
	usersLimiter := middlewares.NewRateLimiter(120, time.Minute)

	authGroup := r.Group("/auth")
	authGroup.Use(authLimiter.RateLimiterMiddleware(middlewares.KeyByIP))
	{
		authGroup.POST("/sign-up", authHandler.SignUp)
		authGroup.POST("/sign-in", authHandler.SignIn)
		authGroup.POST("/sign-out", authHandler.SignOut)
	}

	usersGroup := r.Group("/users")
	usersGroup.Use(authMiddleware.RequireAuth())
	usersGroup.Use(usersLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))
	{
		usersGroup.GET("", usersHandler.ListUsers)
		usersGroup.GET("/:id", usersHandler.GetUserByID)
		usersGroup.PUT("/:id", usersHandler.UpdateUser)
		usersGroup.DELETE("/:id", usersHandler.DeleteUser)
	}

	return r
}
