package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/measure-harness/internal/config"
	"github.com/ehr/measure-harness/internal/domain/scoring"
	"github.com/ehr/measure-harness/internal/domain/testrun"
	"github.com/ehr/measure-harness/internal/harness"
	"github.com/ehr/measure-harness/internal/platform/db"
	"github.com/ehr/measure-harness/internal/platform/middleware"
)

const version = "0.1.0"

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the scoring API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, newLogger(cfg, os.Stderr))
		},
	}
	cmd.Flags().String("port", "8080", "Listen port")
	cmd.Flags().String("manifest", "measure.yaml", "Measure manifest supplying criterion overrides, if present")
	cmd.Flags().String("db", "", "Postgres URL; enables the test-run endpoints")
	cmd.Flags().String("body-limit", "10M", "Maximum request body size")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	var names scoring.ExpressionNames
	if cfg.MeasureManifest != "" {
		if _, err := os.Stat(cfg.MeasureManifest); err == nil {
			m, err := harness.LoadManifest(cfg.MeasureManifest)
			if err != nil {
				return err
			}
			names = m.Names
			logger.Info().Str("measure", m.Name).Msg("loaded measure manifest")
		}
	}

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return err
		}
		defer pool.Close()
		logger.Info().Msg("connected to database")
	}

	e := newServer(cfg, names, pool, logger)

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// newServer wires the API. The test-run endpoints are mounted only when pool
// is non-nil.
func newServer(cfg *config.Config, names scoring.ExpressionNames, pool *pgxpool.Pool, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": version,
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	apiV1 := e.Group("/api/v1")
	scoring.NewHandler(names).RegisterRoutes(apiV1)

	if pool != nil {
		svc := testrun.NewService(testrun.NewTestRunRepoPG(pool))
		testrun.NewHandler(svc).RegisterRoutes(apiV1)
	}
	return e
}
