// Package config reads process configuration from the environment.
// Command-line flags in cmd/ override selected fields.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type ExpiryCfg struct {
	Enabled bool
	Brokers []string
	Topic   string
	GroupID string
}

type Config struct {
	Addr      string
	DSN       string
	Verbose   bool
	Telemetry bool

	TelemetryAddr string
	LogLevel      string
	LogConsole    bool

	// Zoom is the single zoom level this server produces.
	Zoom int

	PoolMinConns int32
	PoolMaxConns int32
	PoolRecycle  time.Duration

	// TileCacheSize bounds the in-process tile cache; 0 disables it.
	TileCacheSize int

	Expiry ExpiryCfg
}

const dsnDefault = "host=localhost user=osm password=osm dbname=osm"

func FromEnv() Config {
	return Config{
		Addr:          getenv("ADDR", ":8080"),
		DSN:           getenv("DSN", dsnDefault),
		Verbose:       getbool("VERBOSE", false),
		Telemetry:     getbool("TELEMETRY_ENABLED", false),
		TelemetryAddr: getenv("TELEMETRY_ADDR", ":9090"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		LogConsole:    getbool("LOG_CONSOLE", false),
		Zoom:          getint("ZOOM", 16),
		PoolMinConns:  int32(getint("POOL_MIN_CONNS", 0)),
		PoolMaxConns:  int32(getint("POOL_MAX_CONNS", 10)),
		PoolRecycle:   getduration("POOL_RECYCLE", 30*time.Minute),
		TileCacheSize: getint("TILE_CACHE_SIZE", 0),
		Expiry: ExpiryCfg{
			Enabled: getbool("EXPIRY_ENABLED", false),
			Brokers: splitCSV(getenv("KAFKA_BROKERS", "localhost:9092")),
			Topic:   getenv("KAFKA_TOPIC", "tile-expiry"),
			GroupID: getenv("KAFKA_GROUP_ID", "tilesrv-invalidator"),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	var out []string
	for p := range strings.SplitSeq(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
