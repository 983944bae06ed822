package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/openscape/tilesrv/internal/config"
	"github.com/openscape/tilesrv/internal/invalidation/kafkaconsumer"
	"github.com/openscape/tilesrv/internal/logger"
	"github.com/openscape/tilesrv/internal/server"
	"github.com/openscape/tilesrv/internal/stats"
	"github.com/openscape/tilesrv/internal/store"
	"github.com/openscape/tilesrv/internal/telemetry"
	"github.com/openscape/tilesrv/internal/tilecache"
	"github.com/openscape/tilesrv/internal/tilegen"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	addrFlag := flag.String("server", "", "listen address, e.g. :8080")
	dsnFlag := flag.String("dsn", "", "postgres dsn")
	verboseFlag := flag.Bool("verbose", false, "verbose request logging")
	telemetryFlag := flag.Bool("telemetry", false, "enable the prometheus side listener")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}
	if *dsnFlag != "" {
		cfg.DSN = *dsnFlag
	}
	if *verboseFlag {
		cfg.Verbose = true
	}
	if *telemetryFlag {
		cfg.Telemetry = true
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		Component: "tilesrv",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	st := stats.NewSet()
	st.ServerStart.Inc()

	appLog.Info("starting tile server",
		"addr", cfg.Addr,
		"version", Version,
		"zoom", cfg.Zoom)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pg, err := store.NewPostgis(ctx, store.Config{
		DSN:      cfg.DSN,
		MinConns: cfg.PoolMinConns,
		MaxConns: cfg.PoolMaxConns,
		Recycle:  cfg.PoolRecycle,
	}, appLog)
	if err != nil {
		appLog.Error("store setup failed", "err", err)
		return 1
	}
	defer pg.Close()

	cache := tilecache.New(cfg.TileCacheSize)
	if cache != nil {
		appLog.Info("tile cache enabled", "size", cfg.TileCacheSize)
	}

	var provider *telemetry.Provider
	if cfg.Telemetry {
		provider = telemetry.Init(telemetry.Config{
			Addr:  cfg.TelemetryAddr,
			Build: telemetry.BuildInfo{Version: Version},
		})
		go func() {
			if err := provider.Serve(ctx, telemetry.Config{Addr: cfg.TelemetryAddr}, appLog); err != nil {
				appLog.Error("telemetry server exited", "err", err)
			}
		}()
	}

	if cfg.Expiry.Enabled && cache != nil {
		consumer := kafkaconsumer.New(
			kafkaconsumer.Defaults(cfg.Expiry.Brokers, cfg.Expiry.Topic, cfg.Expiry.GroupID),
			appLog, cache)
		go func() {
			if err := consumer.Start(ctx); err != nil {
				appLog.Error("expiry consumer exited", "err", err)
			}
		}()
	}

	gen := tilegen.New(pg, st, appLog)

	deps := server.Deps{
		Fetcher:   gen,
		Stats:     st,
		Cache:     cache,
		Telemetry: provider,
	}
	if err := server.Run(ctx, cfg, appLog, deps); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}
