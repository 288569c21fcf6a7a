package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/qaforum/engagement/internal/feed"
	"github.com/qaforum/engagement/internal/handlers"
	"github.com/qaforum/engagement/internal/logger"
	"github.com/qaforum/engagement/internal/models"
	"github.com/qaforum/engagement/internal/telemetry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		tp, err := telemetry.InitTracer(telemetry.Config{
			ServiceName:  "engagement",
			Environment:  cfg.Environment,
			OTLPEndpoint: cfg.Telemetry.Endpoint,
			Enabled:      cfg.Telemetry.Enabled,
			SamplingRate: cfg.Telemetry.SamplingRate,
		})
		if err != nil {
			return err
		}
		if tp != nil {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(ctx); err != nil {
					logger.Log.Warn("Tracer shutdown failed", zap.Error(err))
				}
			}()
		}

		a, err := newApp(cfg, appOptions{migrate: serveMigrate, useRedis: true})
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := context.WithCancel(context.Background())
		defer stop()

		replayed, err := a.warm(ctx)
		if err != nil {
			return err
		}
		logger.Log.Info("Live scores loaded", zap.Int("events", replayed))

		if cfg.ReconcileInterval > 0 {
			go reconcileLoop(ctx, a, cfg.ReconcileInterval)
		}

		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}
		opts := handlers.DefaultRouterOptions()
		opts.CORSOrigins = cfg.HTTP.CORSOrigins
		opts.Tracing = cfg.Telemetry.Enabled
		opts.Health = a.health
		router := handlers.NewRouter(handlers.NewHandlers(a.services()), opts)

		srv := &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			logger.Log.Info("🚀 Engagement API starting", zap.String("addr", cfg.HTTP.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
		}()

		// Wait for interrupt signal to gracefully shutdown the server
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-serveErr:
			return err
		case <-quit:
		}
		logger.Log.Info("Shutting down server...")
		stop()

		// Give outstanding requests 30 seconds to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}

		logger.Log.Info("Server exited")
		return nil
	},
}

// reconcileLoop periodically checks the live scores against the log and
// logs feed CTR until ctx is done
func reconcileLoop(ctx context.Context, a *app, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reports, err := a.reconcile(ctx, models.KnownTargetTypes...)
			if err != nil {
				if ctx.Err() == nil {
					logger.Log.Warn("Reconcile failed", zap.Error(err))
				}
				continue
			}
			for _, r := range reports {
				logger.Log.Debug("Reconciled live scores",
					logger.WithTargetType(string(r.TargetType)),
					zap.Int("checked", r.Checked),
					zap.Int("drifted", len(r.Drifted)),
				)
			}
			if err := feed.LogCTRMetrics(ctx, a.reader, time.Now()); err != nil && ctx.Err() == nil {
				logger.Log.Warn("CTR report failed", zap.Error(err))
			}
		}
	}
}

func init() {
	serveCmd.Flags().BoolVar(&serveMigrate, "migrate", true, "Run database migrations before serving")
}
