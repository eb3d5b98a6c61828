package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aretw0/switchback"
	"github.com/aretw0/switchback/internal/cli"
	"github.com/aretw0/switchback/internal/config"
	"github.com/aretw0/switchback/internal/logging"
	"github.com/aretw0/switchback/pkg/adapters/httpapi"
	"github.com/aretw0/switchback/pkg/adapters/memory"
	"github.com/aretw0/switchback/pkg/adapters/redis"
	"github.com/aretw0/switchback/pkg/observability"
	"github.com/aretw0/switchback/pkg/persistence/middleware"
	"github.com/aretw0/switchback/pkg/ports"
	"github.com/aretw0/switchback/pkg/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve [source]",
	Short: "Serve the navigation API over HTTP",
	Long: `Starts a JSON API where every session gets its own router position:
clients post transitions, read the committed path, and stream settled
transitions as server-sent events. Snapshots persist in memory, or in
redis when SWITCHBACK_REDIS_ADDR is set, optionally encrypted and
redacted. Prometheus metrics are exposed on /metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd, args); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	_ = viper.BindPFlag("port", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	source := sourceArg(cmd, args)
	debug, _ := cmd.Flags().GetBool("debug")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := logging.NewJSON(level)

	metrics, err := observability.NewMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("metrics setup failed: %w", err)
	}

	// Each session gets its own router; all of them feed the same collectors.
	factory := func() (*switchback.Router, error) {
		router, err := cli.BuildRouter(cli.RunOptions{Source: source, Debug: debug}, logger)
		if err != nil {
			return nil, err
		}
		if err := metrics.Instrument(router); err != nil {
			return nil, err
		}
		return router, nil
	}

	store, sessOpts, cleanup, err := buildSnapshotStore(cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	sessions := session.NewManager(store, append(sessOpts, session.WithLogger(logger))...)

	srv, err := httpapi.NewServer(factory, sessions,
		httpapi.WithLogger(logger),
		httpapi.WithVersion(switchback.Version),
	)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", srv.Handler())

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("starting http server", "addr", httpServer.Addr, "source", source)
		serverErrors <- httpServer.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("starting shutdown", "signal", sig.String())

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(ctx); err != nil {
			logger.Warn("graceful shutdown did not complete", "err", err)
			if err := httpServer.Close(); err != nil {
				return fmt.Errorf("could not stop server: %w", err)
			}
		}
		logger.Info("server stopped")
	}
	return nil
}

// buildSnapshotStore assembles the persistence side of serve: memory or
// redis as the backing store, wrapped in redaction and encryption
// middleware when configured. The returned cleanup closes the redis
// client, if any.
func buildSnapshotStore(cfg config.Config, logger *slog.Logger) (ports.SnapshotStore, []session.Option, func(), error) {
	var store ports.SnapshotStore
	var sessOpts []session.Option
	cleanup := func() {}

	if cfg.RedisAddr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store = redis.NewStoreFromClient(client)
		// Several replicas may serve the same session; the distributed
		// lock keeps their transitions serialized.
		sessOpts = append(sessOpts, session.WithLocker(redis.NewLocker(client, "switchback")))
		cleanup = func() { _ = client.Close() }
		logger.Info("using redis snapshot store", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
	} else {
		store = memory.NewStore()
		logger.Info("using in-memory snapshot store")
	}

	var mws []middleware.Middleware
	if len(cfg.RedactParams) > 0 {
		mws = append(mws, middleware.NewRedactionMiddleware(cfg.RedactParams))
		logger.Info("snapshot redaction enabled", "patterns", len(cfg.RedactParams))
	}
	if cfg.SnapshotKey != "" {
		key, err := hex.DecodeString(cfg.SnapshotKey)
		if err != nil || len(key) != 32 {
			cleanup()
			return nil, nil, nil, fmt.Errorf("snapshot_key must be 64 hex characters (AES-256)")
		}
		mws = append(mws, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}))
		logger.Info("snapshot encryption enabled")
	}

	return middleware.Chain(store, mws...), sessOpts, cleanup, nil
}
