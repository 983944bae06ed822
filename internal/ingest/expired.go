package ingest

import (
	"bufio"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/openscape/tilesrv/internal/invalidation"
)

// ReadExpired walks the expired-tiles directory imposm wrote and
// returns the distinct tiles at the wanted zoom. imposm emits one
// "z/x/y" triple per line, a file per update batch.
func ReadExpired(dir string, zoom int) ([]invalidation.TileRef, error) {
	seen := map[invalidation.TileRef]struct{}{}
	var out []invalidation.TileRef

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tiles") {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		tiles, err := ParseTiles(f, zoom)
		if err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		for _, tr := range tiles {
			if _, ok := seen[tr]; ok {
				continue
			}
			seen[tr] = struct{}{}
			out = append(out, tr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ParseTiles reads z/x/y lines, keeping tiles at the wanted zoom.
// Blank lines are skipped; anything else malformed is an error.
func ParseTiles(rd io.Reader, zoom int) ([]invalidation.TileRef, error) {
	var out []invalidation.TileRef
	sc := bufio.NewScanner(rd)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		parts := strings.Split(text, "/")
		if len(parts) != 3 {
			return nil, fmt.Errorf("line %d: want z/x/y, got %q", line, text)
		}
		z, err1 := strconv.Atoi(parts[0])
		x, err2 := strconv.Atoi(parts[1])
		y, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("line %d: want z/x/y, got %q", line, text)
		}
		if z != zoom {
			continue
		}
		out = append(out, invalidation.TileRef{X: x, Y: y})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return out, nil
}
