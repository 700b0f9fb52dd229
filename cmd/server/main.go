// Package main is the entry point for the taskboard service. It wires all
// dependencies using samber/do v2, restores the store snapshot, starts the
// HTTP server, and handles graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/pflag"

	"github.com/jsamuelsen11/taskboard/internal/adapters/clients/webhook"
	adapthttp "github.com/jsamuelsen11/taskboard/internal/adapters/http"
	"github.com/jsamuelsen11/taskboard/internal/adapters/http/handlers"
	"github.com/jsamuelsen11/taskboard/internal/adapters/http/middleware"
	"github.com/jsamuelsen11/taskboard/internal/adapters/store/memstore"
	"github.com/jsamuelsen11/taskboard/internal/app"
	"github.com/jsamuelsen11/taskboard/internal/app/txn"
	"github.com/jsamuelsen11/taskboard/internal/platform/config"
	"github.com/jsamuelsen11/taskboard/internal/platform/health"
	"github.com/jsamuelsen11/taskboard/internal/platform/httpclient"
	"github.com/jsamuelsen11/taskboard/internal/platform/logging"
	"github.com/jsamuelsen11/taskboard/internal/platform/telemetry"
	"github.com/jsamuelsen11/taskboard/internal/ports"
)

const otelShutdownTimeout = 5 * time.Second

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	profile   string
	configDir string
}

func parseFlags(args []string) (flags, error) {
	var f flags
	fs := pflag.NewFlagSet("taskboard", pflag.ContinueOnError)
	fs.StringVarP(&f.profile, "profile", "p", os.Getenv("TASKBOARD_PROFILE"),
		"config profile to load (local, dev, qa, prod); defaults to $TASKBOARD_PROFILE")
	fs.StringVar(&f.configDir, "config-dir", "", "directory holding base.yaml and the profile files")

	if err := fs.Parse(args); err != nil {
		return flags{}, err
	}
	if f.profile == "" {
		return flags{}, errors.New("a profile is required: pass --profile or set TASKBOARD_PROFILE (e.g. local, dev, qa, prod)")
	}
	return f, nil
}

func run(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}

	// Bootstrap: config, logger, telemetry.
	var loadOpts []config.Option
	if f.configDir != "" {
		loadOpts = append(loadOpts, config.WithConfigDir(f.configDir))
	}
	cfg, err := config.Load(f.profile, loadOpts...)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr,
		slog.String("service", cfg.Telemetry.ServiceName),
		slog.String("profile", f.profile),
	)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Any("sources", cfg.Sources))

	ctx := context.Background()
	otel, err := setupTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	// DI container.
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger)
	do.ProvideValue(injector, otel.Metrics)

	registerDependencies(injector, cfg, logger)

	// Restore state before any request can observe the store.
	store := do.MustInvoke[*memstore.Store](injector)
	if err := restoreSnapshot(ctx, store, cfg.Store.SnapshotPath); err != nil {
		return err
	}

	// Resolve the server (eagerly wires the full graph).
	server, err := do.Invoke[*adapthttp.Server](injector)
	if err != nil {
		return fmt.Errorf("resolving server: %w", err)
	}

	// Register health checkers after the graph is wired.
	registry := do.MustInvoke[ports.HealthRegistry](injector)
	registry.Register(store)
	if cfg.Notifier.Enabled {
		registry.Register(do.MustInvoke[*webhook.Publisher](injector))
	}

	snapCtx, stopSnapshots := context.WithCancel(ctx)
	defer stopSnapshots()
	if cfg.Store.SnapshotPath != "" && cfg.Store.SnapshotInterval > 0 {
		go store.RunSnapshots(snapCtx, cfg.Store.SnapshotPath, cfg.Store.SnapshotInterval, logger)
	}

	// Start server in background.
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	// Wait for shutdown signal or server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	// Graceful shutdown: drain HTTP requests.
	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	}

	// Wait for Start() goroutine to return.
	<-serverErr

	// Let post-commit effects of the last requests finish.
	if err := do.MustInvoke[*txn.Coordinator](injector).Drain(shutdownCtx); err != nil {
		logger.Warn("post-commit effects still running at shutdown", slog.Any("error", err))
	}

	// No more writes can arrive: take the final snapshot.
	stopSnapshots()
	if path := cfg.Store.SnapshotPath; path != "" {
		if err := store.SaveFile(ctx, path); err != nil {
			logger.Error("final snapshot failed", slog.Any("error", err))
		} else {
			logger.Info("snapshot saved", slog.String("path", path))
		}
	}

	// Flush telemetry.
	otelCtx, otelCancel := context.WithTimeout(ctx, otelShutdownTimeout)
	defer otelCancel()

	if err := otel.Shutdown(otelCtx); err != nil {
		logger.Error("telemetry shutdown error", slog.Any("error", err))
	}

	logger.Info("shutdown complete")
	return nil
}

// restoreSnapshot loads the snapshot at path, if configured, and makes sure
// its directory exists for later saves.
func restoreSnapshot(ctx context.Context, store *memstore.Store, path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}
	if err := store.LoadFile(ctx, path); err != nil {
		return fmt.Errorf("restoring store: %w", err)
	}
	return nil
}

func setupTelemetry(ctx context.Context, cfg *config.Config) (*telemetry.Providers, error) {
	if !cfg.Telemetry.Enabled {
		return &telemetry.Providers{}, nil
	}
	return telemetry.Setup(ctx, telemetry.Settings{
		ServiceName: cfg.Telemetry.ServiceName,
		Exporter:    cfg.Telemetry.Exporter,
		Endpoint:    cfg.Telemetry.Endpoint,
	})
}

func registerDependencies(injector *do.RootScope, cfg *config.Config, logger *slog.Logger) {
	do.Provide(injector, func(_ do.Injector) (*memstore.Store, error) {
		return memstore.New()
	})

	do.Provide(injector, func(i do.Injector) (*txn.Coordinator, error) {
		store := do.MustInvoke[*memstore.Store](i)
		metrics := do.MustInvoke[*telemetry.Metrics](i)
		return txn.NewCoordinator(store,
			txn.WithMetrics(metrics),
			txn.WithEffectWorkers(cfg.Notifier.Workers),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*webhook.Publisher, error) {
		metrics := do.MustInvoke[*telemetry.Metrics](i)
		client := httpclient.New(&cfg.Notifier.Client, "webhook", metrics, logger)
		return webhook.New(client, cfg.Notifier.Path, logger), nil
	})

	do.Provide(injector, func(i do.Injector) ([]app.Option, error) {
		if !cfg.Notifier.Enabled {
			return nil, nil
		}
		return []app.Option{app.WithPublisher(do.MustInvoke[*webhook.Publisher](i))}, nil
	})

	do.Provide(injector, func(i do.Injector) (ports.UserService, error) {
		store := do.MustInvoke[*memstore.Store](i)
		coord := do.MustInvoke[*txn.Coordinator](i)
		opts := do.MustInvoke[[]app.Option](i)
		return app.NewUserService(store, coord, logger, opts...), nil
	})

	do.Provide(injector, func(i do.Injector) (ports.TaskService, error) {
		store := do.MustInvoke[*memstore.Store](i)
		coord := do.MustInvoke[*txn.Coordinator](i)
		opts := do.MustInvoke[[]app.Option](i)
		return app.NewTaskService(store, coord, logger, opts...), nil
	})

	do.Provide(injector, func(_ do.Injector) (ports.HealthRegistry, error) {
		return health.New(), nil
	})

	do.Provide(injector, func(i do.Injector) (*handlers.UserHandler, error) {
		return handlers.NewUserHandler(do.MustInvoke[ports.UserService](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*handlers.TaskHandler, error) {
		return handlers.NewTaskHandler(do.MustInvoke[ports.TaskService](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*handlers.HealthHandler, error) {
		return handlers.NewHealthHandler(do.MustInvoke[ports.HealthRegistry](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (nethttp.Handler, error) {
		userH := do.MustInvoke[*handlers.UserHandler](i)
		taskH := do.MustInvoke[*handlers.TaskHandler](i)
		healthH := do.MustInvoke[*handlers.HealthHandler](i)
		metrics := do.MustInvoke[*telemetry.Metrics](i)

		return adapthttp.NewRouter(userH, taskH, healthH,
			middleware.Recovery(logger),
			middleware.RequestID(),
			middleware.CorrelationID(),
			middleware.OpenTelemetry(metrics),
			middleware.Logging(logger),
			middleware.Timeout(cfg.Server.WriteTimeout),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*adapthttp.Server, error) {
		handler := do.MustInvoke[nethttp.Handler](i)
		return adapthttp.NewServer(cfg.Server, handler, logger), nil
	})
}
