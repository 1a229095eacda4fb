package cli

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alexbotov/pagacollect/internal/api"
	"github.com/alexbotov/pagacollect/internal/audit"
	"github.com/alexbotov/pagacollect/internal/auth"
	"github.com/alexbotov/pagacollect/internal/collections"
	"github.com/alexbotov/pagacollect/internal/config"
	"github.com/alexbotov/pagacollect/internal/control"
	"github.com/alexbotov/pagacollect/internal/database"
	"github.com/alexbotov/pagacollect/pkg/pagacollect"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the collection service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting collection service",
		zap.String("version", api.Version),
		zap.String("environment", cfg.Log.Environment),
		zap.Bool("paga_test", cfg.Paga.Test))

	db, err := database.New(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer func() {
		logger.Info("closing database connections")
		db.Close()
	}()

	if err := db.Migrate(); err != nil {
		return err
	}

	client, err := pagacollect.NewClient(cfg.Paga.ClientConfig(), pagacollect.WithLogger(logger.Named("paga")))
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	auditSvc := audit.New(db.DB)
	controlSvc := control.New(db.DB, auditSvc)
	if err := controlSvc.LoadState(ctx); err != nil {
		return err
	}
	if !controlSvc.Enabled() {
		logger.Warn("collections are paused")
	}

	hub := api.NewHub(logger.Named("events"))
	collectionsSvc := collections.New(db.DB, client, auditSvc,
		collections.WithLogger(logger.Named("collections")),
		collections.WithMetrics(collections.NewMetrics(registry)),
		collections.WithNotifier(hub),
		collections.WithGate(controlSvc),
		collections.WithCurrency(cfg.Paga.Currency),
		collections.WithCallbackURL(cfg.Server.CallbackURL()),
	)
	authSvc := auth.New(&cfg.Auth, auditSvc)

	handler := api.New(authSvc, collectionsSvc, controlSvc, hub, db, cfg.Callback, logger.Named("http"))
	router := handler.SetupRouter(api.RouterConfig{
		RateLimitRPS:   cfg.RateLimit.RPS,
		RateLimitBurst: cfg.RateLimit.Burst,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Registry:       registry,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("service shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", zap.Error(err))
	}
	logger.Info("service shutdown complete")
	return nil
}
