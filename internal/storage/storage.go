package storage

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/IshaanNene/zhongyi/internal/catalog"
	"github.com/IshaanNene/zhongyi/internal/config"
	"github.com/IshaanNene/zhongyi/internal/types"
)

// Sink is the interface for all record outputs.
type Sink interface {
	// Append writes one record. The first record written to an empty output
	// fixes the header; later records are projected onto it.
	Append(rec *types.Record) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the backend identifier.
	Name() string
}

// resolveHeader returns the header to project rec onto and whether it still
// has to be written.
func resolveHeader(header []string, rec *types.Record) ([]string, bool) {
	if len(header) > 0 {
		return header, false
	}
	return rec.Keys(), true
}

// Open builds the configured sinks for one category run.
func Open(ctx context.Context, cfg *config.StorageConfig, cat catalog.Category, logger *slog.Logger) (Sink, error) {
	var sinks []Sink
	// closeAll releases sinks opened before a later one failed; the open
	// error is what the caller sees, close errors are only logged.
	closeAll := func() {
		for _, s := range sinks {
			if err := s.Close(); err != nil {
				logger.Warn("close sink after failed open", "sink", s.Name(), "category", cat.Key, "error", err)
			}
		}
	}

	base := filepath.Join(cfg.OutputDir, strings.TrimSuffix(cat.FileName, filepath.Ext(cat.FileName)))
	for _, format := range cfg.Formats {
		var (
			s   Sink
			err error
		)
		switch format {
		case "xlsx":
			s, err = OpenXLSX(base+".xlsx", cat.SheetName, logger)
		case "csv":
			s, err = OpenCSV(base+".csv", logger)
		default:
			err = fmt.Errorf("unsupported storage format: %s", format)
		}
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, s)
	}

	if cfg.Mongo.Enabled {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		s, err := NewMongoSink(connectCtx, cfg.Mongo.URI, cfg.Mongo.Database, cat.Key, logger)
		if err != nil {
			closeAll()
			return nil, err
		}
		sinks = append(sinks, s)
	}

	switch len(sinks) {
	case 0:
		return nil, fmt.Errorf("no storage configured for %s", cat.Key)
	case 1:
		return sinks[0], nil
	default:
		return NewMultiSink(sinks, logger), nil
	}
}
