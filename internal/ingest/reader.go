package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/trevortrinh/vigil-hypertrace/pkg/types"
	"go.uber.org/zap"
)

// Reader decodes newline-delimited JSON fill records. One record per line,
// field names matching the upstream node data. Malformed lines are skipped
// and counted; they never abort the file.
type Reader struct {
	logger *zap.Logger
}

// NewReader creates a jsonl fill reader.
func NewReader(logger *zap.Logger) *Reader {
	return &Reader{logger: logger}
}

// ReadAll decodes all raw fills from r.
func (rd *Reader) ReadAll(r io.Reader) ([]*types.RawFill, error) {
	scanner := bufio.NewScanner(r)
	// Fill lines are small, but liquidation tags can pad them out.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var fills []*types.RawFill
	line := 0

	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var fill types.RawFill
		err := json.Unmarshal(raw, &fill)
		if err != nil {
			LinesSkippedTotal.Inc()
			rd.logger.Warn("undecodable-fill-line",
				zap.Int("line", line),
				zap.Error(err))
			continue
		}

		fills = append(fills, &fill)
	}

	err := scanner.Err()
	if err != nil {
		return fills, fmt.Errorf("scan fills: %w", err)
	}

	return fills, nil
}

// ReadFile decodes all raw fills from one jsonl file.
func (rd *Reader) ReadFile(path string) ([]*types.RawFill, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	fills, err := rd.ReadAll(f)
	if err != nil {
		return fills, err
	}

	FilesReadTotal.Inc()
	rd.logger.Info("fills-file-read",
		zap.String("path", path),
		zap.Int("fills", len(fills)))

	return fills, nil
}

// ReadDir decodes all *.jsonl files under dir, recursively, in sorted
// path order.
func (rd *Reader) ReadDir(dir string) ([]*types.RawFill, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".jsonl" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(paths)

	var fills []*types.RawFill
	for _, path := range paths {
		fileFills, err := rd.ReadFile(path)
		if err != nil {
			return fills, err
		}
		fills = append(fills, fileFills...)
	}

	return fills, nil
}
