package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rolegate/rolegate/internal/app"
	"github.com/rolegate/rolegate/internal/auth"
	"github.com/rolegate/rolegate/internal/guard"
	"github.com/rolegate/rolegate/internal/observability"
	"github.com/rolegate/rolegate/internal/platform/cache"
	"github.com/rolegate/rolegate/internal/platform/db"
	"github.com/rolegate/rolegate/internal/principals"
	"github.com/rolegate/rolegate/internal/roles"
	"github.com/rolegate/rolegate/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	catalog, err := roles.LoadCatalog(cfg.RoleCatalog)
	if err != nil {
		logger.Error("load role catalog", slog.Any("error", err))
		os.Exit(1)
	}

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
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
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	roleRepo := roles.NewRepository(pool)
	resolver := roles.NewResolver(roleRepo)

	provisioner := roles.NewProvisioner(roleRepo, logger)
	for _, outcome := range provisioner.Reconcile(ctx, catalog.RoleDefinitions) {
		logger.Info("role reconciled",
			slog.String("short_name", outcome.ShortName),
			slog.String("status", string(outcome.Status)))
	}

	principalRepo := principals.NewRepository(pool)
	principalService := principals.NewService(principalRepo)

	if catalog.HasDefaults() {
		assigner, err := roles.NewAssigner(ctx, resolver, catalog.DefaultRoles, catalog.DefaultRolesForAuthTypes)
		if err != nil {
			logger.Error("resolve default roles", slog.Any("error", err))
			os.Exit(1)
		}
		hook := assigner.Hook()
		principalService.OnBeforeInsert(func(p *principals.Principal) { hook(p) })
	}

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	metrics := observability.NewMetrics()

	g := guard.New(roleRepo, resolver, principalRepo, sessionManager, logger, metrics)
	guardMW := guard.Middleware{Guard: g, Logger: logger}

	authService := auth.NewService(principalRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)
	principalsHandler := principals.NewHandler(logger, principalService, guardMW)
	rolesHandler := roles.NewHandler(logger, roleRepo, resolver)

	router := app.NewRouter(app.RouterParams{
		Logger:            logger,
		Config:            cfg,
		SessionManager:    sessionManager,
		AuthHandler:       authHandler,
		PrincipalsHandler: principalsHandler,
		RolesHandler:      rolesHandler,
		Metrics:           metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", slog.Any("error", err))
	}
}
