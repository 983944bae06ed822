package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/openscape/tilesrv/internal/ingest"
	"github.com/openscape/tilesrv/internal/invalidation"
	"github.com/openscape/tilesrv/internal/invalidation/kafkapub"
	"github.com/openscape/tilesrv/internal/logger"
)

// Tiles per expiry event; large diffs fan out over several messages.
const tilesPerEvent = 512

func main() {
	os.Exit(run())
}

func run() int {
	imposmFlag := flag.String("imposm", "imposm", "imposm executable path")
	mappingFlag := flag.String("mapping", "mapping.yml", "imposm mapping file")
	configFlag := flag.String("config", "config.json", "imposm config for fetching diffs")
	cachedirFlag := flag.String("cachedir", "/tmp/imposm3_cache", "imposm temp directory for coords, nodes, relations and ways")
	diffdirFlag := flag.String("diffdir", "/tmp/imposm3_diffdir", "imposm diff directory")
	expiredirFlag := flag.String("expiredir", "/tmp/imposm3_expiredir", "expired tiles directory")
	brokersFlag := flag.String("brokers", "", "kafka brokers for expiry events (empty disables publishing)")
	topicFlag := flag.String("topic", "tile-expiry", "kafka topic for expiry events")
	bboxFlag := flag.String("expire-bbox", "", "expire a region given as latA,lonA,latB,lonB instead of running imposm")
	verboseFlag := flag.Bool("verbose", false, "verbose logging")
	flag.Parse()

	level := "warn"
	if *verboseFlag {
		level = "info"
	}
	zl := logger.Build(logger.Config{Level: level, Component: "ingest-diffs"}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *bboxFlag != "" {
		if strings.TrimSpace(*brokersFlag) == "" {
			appLog.Error("--expire-bbox requires --brokers")
			return 1
		}
		bbox, err := ingest.ParseBBox(*bboxFlag)
		if err != nil {
			appLog.Error("bad --expire-bbox", "err", err)
			return 1
		}
		cfg := ingest.Defaults()
		tiles, err := ingest.TilesForBBox(cfg.ExpireZoom, bbox)
		if err != nil {
			appLog.Error("region expiry rejected", "err", err)
			return 1
		}
		return publishExpiry(appLog, *brokersFlag, *topicFlag, cfg.ExpireZoom, tiles)
	}

	connURL, err := ingest.ConnURLFromEnv()
	if err != nil {
		appLog.Error("database configuration incomplete", "err", err)
		return 1
	}

	cfg := ingest.Defaults()
	cfg.ImposmPath = *imposmFlag
	cfg.MappingPath = *mappingFlag
	cfg.ConfigPath = *configFlag
	cfg.CacheDir = *cachedirFlag
	cfg.DiffDir = *diffdirFlag
	cfg.ExpireDir = *expiredirFlag

	runner := ingest.NewRunner(cfg, appLog)
	if err := runner.Run(ctx, connURL); err != nil {
		appLog.Error("incremental update failed", "err", err)
		return 1
	}

	if strings.TrimSpace(*brokersFlag) == "" {
		return 0
	}

	tiles, err := ingest.ReadExpired(cfg.ExpireDir, cfg.ExpireZoom)
	if err != nil {
		appLog.Error("reading expired tiles failed", "err", err)
		return 1
	}
	if len(tiles) == 0 {
		appLog.Info("no expired tiles")
		return 0
	}
	return publishExpiry(appLog, *brokersFlag, *topicFlag, cfg.ExpireZoom, tiles)
}

func publishExpiry(appLog *slog.Logger, brokerList, topic string, zoom int, tiles []invalidation.TileRef) int {
	brokers := strings.Split(brokerList, ",")
	for i := range brokers {
		brokers[i] = strings.TrimSpace(brokers[i])
	}
	pub, err := kafkapub.New(brokers, topic)
	if err != nil {
		appLog.Error("kafka producer setup failed", "err", err)
		return 1
	}
	defer pub.Close()

	for start := 0; start < len(tiles); start += tilesPerEvent {
		end := min(start+tilesPerEvent, len(tiles))
		ev := invalidation.Event{
			Version: 1,
			Op:      "expire",
			Zoom:    zoom,
			Tiles:   tiles[start:end],
			TS:      time.Now().UTC(),
			Source:  "ingest-diffs",
		}
		if err := pub.Publish(ev); err != nil {
			appLog.Error("publishing expiry event failed", "err", err)
			return 1
		}
	}
	appLog.Info("published expiry events", "tiles", len(tiles))
	return 0
}
