package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"nahio/config"
	"nahio/cron"
	"nahio/middleware"
	"nahio/routes"
	"nahio/utils"
)

const serviceName = "nahio"

func main() {
	rootCmd := &cobra.Command{
		Use:   serviceName,
		Short: "Nahio visit scheduling API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadConfig()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (and the task worker when WORKER_ENABLED)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create mongo indexes and the postgres schema for the configured stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := utils.GetLogger()
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			a, _, err := openStores(ctx, config.AppConfig, logger)
			if err != nil {
				return err
			}
			defer a.close(context.Background())
			return a.migrate(ctx)
		},
	}
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run only the notification and reminder worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := utils.GetLogger()
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			shutdownTracing, err := utils.SetupTracing(ctx, serviceName+"-worker")
			if err != nil {
				return err
			}
			defer func() { _ = shutdownTracing(context.Background()) }()

			a, err := bootstrap(ctx, config.AppConfig, logger)
			if err != nil {
				return err
			}
			defer a.close(context.Background())
			if !a.redisUp {
				return errors.New("worker: redis is required")
			}
			return cron.NewWorker(config.AppConfig, a.dispatcher, logger.Named("worker")).Run(ctx)
		},
	}
}

func runServer() error {
	cfg := config.AppConfig
	logger := utils.GetLogger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := utils.SetupTracing(ctx, serviceName)
	if err != nil {
		return err
	}

	a, err := bootstrap(ctx, cfg, logger)
	if err != nil {
		logger.Error("Startup failed", zap.Error(err))
		return err
	}

	var worker *cron.Worker
	if cfg.WorkerEnabled && a.redisUp {
		worker = cron.NewWorker(cfg, a.dispatcher, logger.Named("worker"))
		worker.Start(ctx)
	}
	utils.StartHealthMonitor(ctx, 30*time.Second, a.checks)

	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(utils.ErrorHandler())
	router.Use(middleware.RequestLogger(logger.Named("http")))
	if err := routes.RegisterRoutes(router, a.handlers, a.sessions, routes.Options{
		CORSOrigins:       cfg.CORSOrigins,
		TrustedProxies:    cfg.TrustedProxyList(),
		RequestsPerMinute: cfg.MaxRequestsPerMin,
		ReadyChecks:       a.checks,
	}); err != nil {
		logger.Error("Route setup failed", zap.Error(err))
		return err
	}

	port := cfg.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              "0.0.0.0:" + port,
		Handler:           otelhttp.NewHandler(router, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Starting server", zap.String("addr", srv.Addr))
	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err = <-serverErr:
		logger.Error("Server failed", zap.Error(err))
	}
	logger.Info("Server is shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if serr := srv.Shutdown(shutdownCtx); serr != nil {
		logger.Error("Server forced to shutdown", zap.Error(serr))
	}
	cancel()
	if worker != nil {
		worker.Shutdown()
	}
	a.close(shutdownCtx)
	if terr := shutdownTracing(shutdownCtx); terr != nil {
		logger.Warn("Tracing shutdown failed", zap.Error(terr))
	}
	_ = logger.Sync()

	logger.Info("Server stopped gracefully")
	return err
}
