package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/invload/internal/config"
	"github.com/JonMunkholm/invload/internal/core"
	"github.com/JonMunkholm/invload/internal/logging"
	"github.com/JonMunkholm/invload/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Debug("configuration", "config", cfg.String())

	if err := run(cfg); err != nil {
		slog.Error("loader stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := openPool(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	loader := core.NewLoader(core.PoolConnector{Pool: pool}, core.LoaderConfig{
		AuditModule:   cfg.Loader.AuditModule,
		ProgressEvery: cfg.Loader.ProgressEvery,
	})
	runner := core.NewRunner(loader, cfg.Loader.InputDir, core.DefaultJobs())

	slog.Info("loader configured",
		"input_dir", cfg.Loader.InputDir,
		"module", cfg.Loader.AuditModule,
		"jobs", len(core.DefaultJobs()),
		"run_once", cfg.Loader.RunOnce,
	)

	if cfg.Status.Enabled() {
		audit := loader.Audit()
		server := web.NewServer(cfg.Status.Addr, runner, pool,
			func(ctx context.Context, limit int) ([]core.AuditEntry, error) {
				return audit.Recent(ctx, pool, limit)
			})

		go func() {
			if err := server.Start(); err != nil {
				slog.Error("status server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Status.ShutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				slog.Error("shutdown error", "error", err)
			}
		}()
	}

	if cfg.Loader.RunOnce {
		_, err := runner.RunOnce(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	schedule, err := core.ParseSchedule(cfg.Loader.Schedule)
	if err != nil {
		return err
	}
	return core.NewScheduler(runner, schedule).Run(ctx)
}

// openPool connects to PostgreSQL with the configured pool settings and
// verifies the connection.
func openPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = int32(cfg.MaxConns)
	poolConfig.MinConns = int32(cfg.MinConns)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	return pool, nil
}
