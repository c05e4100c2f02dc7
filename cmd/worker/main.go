package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/luminacare/lumina/internal/access"
	"github.com/luminacare/lumina/internal/app"
	"github.com/luminacare/lumina/internal/identity"
	"github.com/luminacare/lumina/internal/masquerade"
	"github.com/luminacare/lumina/internal/observability"
	"github.com/luminacare/lumina/internal/platform/cache"
	"github.com/luminacare/lumina/internal/platform/db"
	"github.com/luminacare/lumina/internal/shared"
	"github.com/luminacare/lumina/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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

	metrics := observability.NewMetrics()
	audit := shared.NewAuditLogger(pool)

	accessService := access.NewService(access.NewRepository(pool), redisClient, cfg.PermissionTTL, logger)
	tokens := identity.NewTokenStore(redisClient, cfg.TokenTTL)
	links := identity.NewLoginLinkIssuer(cfg.LoginLinkSecret, cfg.AppBaseURL, cfg.LoginLinkTTL)
	identityService := identity.NewService(identity.NewRepository(pool), tokens, links, nil, logger)

	broker := masquerade.NewService(
		masquerade.NewRepository(pool),
		identityService,
		accessService,
		audit,
		metrics,
		cfg.MasqueradeTTL,
		logger,
	)

	mailer := jobs.SMTPMailer{Host: cfg.SMTPHost, Port: cfg.SMTPPort, From: cfg.SMTPFrom}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskTypeSendEmail, Handler: jobs.HandleSendEmail(mailer, logger)},
			{Type: jobs.TaskTypeMasqueradeSweep, Handler: jobs.HandleMasqueradeSweep(broker, logger)},
			{Type: jobs.TaskTypeAuditCleanup, Handler: jobs.HandleAuditCleanup(audit, cfg.AuditRetention, logger)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/5 * * * *", Task: jobs.NewMasqueradeSweepTask()},
			{Spec: "0 3 * * *", Task: jobs.NewAuditCleanupTask()},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return worker.Run(groupCtx)
	})

	logger.Info("worker started", slog.String("redis", cfg.RedisAddr))
	if err := group.Wait(); err != nil {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
