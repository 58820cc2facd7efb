package memory

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BOSS-tools/boplot/pkg/core"
)

const snapshotName = "shared_builds.json"

func (b *Backend) snapshotPath() string {
	name := snapshotName
	if b.cfg.CompressOutput {
		name += ".gz"
	}
	return filepath.Join(b.cfg.OutputDir, name)
}

// writeSnapshot writes every build, oldest first. Callers hold the lock.
func (b *Backend) writeSnapshot() error {
	builds := make([]core.SharedBuild, 0, len(b.order))
	for _, id := range b.order {
		builds = append(builds, b.builds[id])
	}

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if b.cfg.CompressOutput {
		return writeGzipJSON(b.snapshotPath(), builds)
	}
	return writeJSON(b.snapshotPath(), builds)
}

func writeJSON(path string, data []core.SharedBuild) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data []core.SharedBuild) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}

// readSnapshot returns nothing when the file does not exist yet.
func readSnapshot(path string) ([]core.SharedBuild, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if filepath.Ext(path) == ".gz" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip snapshot: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	var builds []core.SharedBuild
	if err := json.NewDecoder(r).Decode(&builds); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return builds, nil
}
