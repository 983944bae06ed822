// Package ingest re-synchronizes the PostGIS store from OSM diffs by
// driving the external imposm binary, and collects the expired-tile
// lists
// it writes so cached tiles can be evicted.
package ingest

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"strconv"

	"context"
)

type Config struct {
	ImposmPath  string
	MappingPath string
	ConfigPath  string
	CacheDir    string
	DiffDir     string
	ExpireDir   string
	ExpireZoom  int
}

func Defaults() Config {
	return Config{
		ImposmPath:  "imposm",
		MappingPath: "mapping.yml",
		ConfigPath:  "config.json",
		CacheDir:    "/tmp/imposm3_cache",
		DiffDir:     "/tmp/imposm3_diffdir",
		ExpireDir:   "/tmp/imposm3_expiredir",
		ExpireZoom:  16,
	}
}

// ConnURLFromEnv assembles the imposm connection URL from the POSTGIS_*
// environment variables.
func ConnURLFromEnv() (string, error) {
	var missing []string
	need := func(k string) string {
		v := os.Getenv(k)
		if v == "" {
			missing = append(missing, k)
		}
		return v
	}
	user := need("POSTGIS_USER")
	password := need("POSTGIS_PASSWORD")
	host := need("POSTGIS_HOST")
	port := need("POSTGIS_PORT")
	dbname := need("POSTGIS_DBNAME")
	if len(missing) > 0 {
		return "", fmt.Errorf("missing environment: %v", missing)
	}
	u := url.URL{
		Scheme: "postgis",
		User:   url.UserPassword(user, password),
		Host:   host + ":" + port,
		Path:   "/" + dbname,
	}
	return u.String(), nil
}

type Runner struct {
	cfg    Config
	logger *slog.Logger

	runCmd func(ctx context.Context, name string, args ...string) error // for tests
}

func NewRunner(cfg Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:    cfg,
		logger: logger,
		runCmd: execRun,
	}
}

// Args returns the fixed imposm invocation for an incremental update.
func (r *Runner) Args(connURL string) []string {
	return []string{
		"run",
		"-config", r.cfg.ConfigPath,
		"-mapping", r.cfg.MappingPath,
		"-connection", connURL,
		"-srid", "4326",
		"-cachedir", r.cfg.CacheDir,
		"-diffdir", r.cfg.DiffDir,
		"-expiretiles-dir", r.cfg.ExpireDir,
		"-expiretiles-zoom", strconv.Itoa(r.cfg.ExpireZoom),
	}
}

// Run performs one incremental update, blocking until imposm exits.
func (r *Runner) Run(ctx context.Context, connURL string) error {
	r.logger.Info("incremental update started", "imposm", r.cfg.ImposmPath)
	if err := r.runCmd(ctx, r.cfg.ImposmPath, r.Args(connURL)...); err != nil {
		return fmt.Errorf("imposm run: %w", err)
	}
	r.logger.Info("incremental update done")
	return nil
}

func execRun(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
