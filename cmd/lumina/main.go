package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/luminacare/lumina/internal/access"
	"github.com/luminacare/lumina/internal/app"
	"github.com/luminacare/lumina/internal/identity"
	"github.com/luminacare/lumina/internal/masquerade"
	"github.com/luminacare/lumina/internal/observability"
	"github.com/luminacare/lumina/internal/orgs"
	"github.com/luminacare/lumina/internal/platform/cache"
	"github.com/luminacare/lumina/internal/platform/db"
	"github.com/luminacare/lumina/internal/shared"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	taskClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() { _ = taskClient.Close() }()

	metrics := observability.NewMetrics()
	audit := shared.NewAuditLogger(pool)

	accessService := access.NewService(access.NewRepository(pool), redisClient, cfg.PermissionTTL, logger)
	accessMW := access.Middleware{Service: accessService, Logger: logger, Metrics: metrics}

	tokens := identity.NewTokenStore(redisClient, cfg.TokenTTL)
	links := identity.NewLoginLinkIssuer(cfg.LoginLinkSecret, cfg.AppBaseURL, cfg.LoginLinkTTL)
	identityService := identity.NewService(identity.NewRepository(pool), tokens, links, taskClient, logger)
	identityMW := identity.Middleware{Service: identityService, Logger: logger}

	superAdminGuard := func(next http.Handler) http.Handler {
		return identityMW.RequireAuth(accessMW.RequireSuperAdmin(next))
	}

	masqueradeService := masquerade.NewService(
		masquerade.NewRepository(pool),
		identityService,
		accessService,
		audit,
		metrics,
		cfg.MasqueradeTTL,
		logger,
	)

	orgsService := orgs.NewService(orgs.NewRepository(pool))

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		IdentityMW:        identityMW,
		IdentityHandler:   identity.NewHandler(logger, identityService, superAdminGuard),
		AccessHandler:     access.NewHandler(logger, accessService, identityMW.RequireAuth, accessMW.RequireSuperAdmin),
		MasqueradeHandler: masquerade.NewHandler(logger, masqueradeService),
		OrgsHandler:       orgs.NewHandler(logger, orgsService, accessMW),
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	}()

	logger.Info("lumina listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
