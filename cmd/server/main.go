package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ndatsenko/pulsemon/internal/config"
	"github.com/ndatsenko/pulsemon/internal/es"
	"github.com/ndatsenko/pulsemon/internal/handlers"
	"github.com/ndatsenko/pulsemon/internal/httperr"
	"github.com/ndatsenko/pulsemon/internal/logging"
	authmw "github.com/ndatsenko/pulsemon/internal/middleware/auth"
	"github.com/ndatsenko/pulsemon/internal/mykafka"
	"github.com/ndatsenko/pulsemon/internal/ratelimit"
	"github.com/ndatsenko/pulsemon/internal/rolecache"
	"github.com/ndatsenko/pulsemon/internal/service"
	"github.com/ndatsenko/pulsemon/internal/session"
	"github.com/ndatsenko/pulsemon/internal/store"
	httpserver "github.com/ndatsenko/pulsemon/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.New(configuration.LogLevel)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	users := store.NewUserStore(db)
	roles := store.NewRoleStore(db)
	clients := store.NewAPIClientStore(db)
	sessions := session.NewStore(db)

	if err := roles.EnsureDefaults(context.Background()); err != nil {
		log.Fatalf("role seeding failed: %v", err)
	}

	esClient, err := es.NewClient(configuration)
	if err != nil {
		logger.Warn("elasticsearch unavailable, search disabled", "error", err)
		esClient = nil
	}

	prod := mykafka.NewProducer([]string{configuration.KAFKA_ADDRESS})

	secret := []byte(configuration.JWT_SECRET)
	tokenTTL := time.Duration(configuration.JWTTTLSeconds) * time.Second

	roleCache := rolecache.New(time.Duration(configuration.RoleCacheTTLSeconds) * time.Second)
	stopCacheJanitor := roleCache.StartJanitor(time.Minute)
	defer stopCacheJanitor()

	limiter := ratelimit.New(configuration.RateLimitMax,
		time.Duration(configuration.RateLimitWindowSecs)*time.Second)
	stopLimiterJanitor := limiter.StartJanitor(time.Minute)
	defer stopLimiterJanitor()

	sweepDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := sessions.DeleteExpired(context.Background()); err != nil {
					logger.Error("session sweep failed", "error", err)
				} else if n > 0 {
					logger.Info("expired sessions removed", "count", n)
				}
			case <-sweepDone:
				return
			}
		}
	}()
	defer close(sweepDone)

	authService := &service.AuthService{
		Users:     users,
		Roles:     roles,
		Sessions:  sessions,
		RoleCache: roleCache,
		Producer:  prod,
		Secret:    secret,
		TokenTTL:  tokenTTL,
	}

	authenticator := &authmw.Authenticator{
		Secret:   secret,
		Sessions: sessions,
		Roles:    roles,
		Cache:    roleCache,
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = httperr.Handler
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			l := logger.With("request_id", c.Response().Header().Get(echo.HeaderXRequestID))
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))
			return next(c)
		}
	})

	deps := httpserver.Deps{
		Auth:          authenticator,
		Clients:       clients,
		Limiter:       limiter,
		AuthHandler:   &handlers.AuthHandler{Service: authService},
		UserHandler:   &handlers.UserHandler{Users: users, Clients: clients, Service: authService},
		SystemHandler: &handlers.SystemHandler{DB: db},
		MetricHandler: &handlers.MetricHandler{DB: db, ES: esClient, Index: es.MetricIndex, Producer: prod},
		AlertHandler:  &handlers.AlertHandler{DB: db},
	}

	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         ":8080",
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	logger.Info("server started", "addr", srv.Addr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	if err := prod.Close(); err != nil {
		logger.Error("kafka close error", "error", err)
	}

	logger.Info("shutdown complete")
}
