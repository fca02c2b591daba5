// Package ingest loads gzip-compressed CSV archives of daily foot-traffic
// observations into the store.
package ingest

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/footfall/footfall/internal/observability"
	"github.com/footfall/footfall/internal/storage"
	"github.com/footfall/footfall/internal/store"
)

const batchSize = 500

// requiredColumns is the header contract for foot-traffic archives. Column
// order in the file does not matter; extra columns are ignored.
var requiredColumns = []string{"day", "id", "name", "ft", "state", "city", "formatted_address", "lon", "lat"}

// Inserter is the subset of the store the loader needs.
type Inserter interface {
	InsertRecords(ctx context.Context, records []store.Record) (int, error)
}

// Loader streams archives into the store in fixed-size batches.
type Loader struct {
	inserter Inserter
	logger   *slog.Logger
}

func NewLoader(inserter Inserter, logger *slog.Logger) (*Loader, error) {
	if inserter == nil {
		return nil, fmt.Errorf("inserter is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{inserter: inserter, logger: logger}, nil
}

// LoadFile ingests a gzip CSV archive from the local filesystem.
func (l *Loader) LoadFile(ctx context.Context, path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open archive %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()
	return l.load(ctx, path, file)
}

// LoadObject ingests a gzip CSV archive fetched from the object store.
func (l *Loader) LoadObject(ctx context.Context, objects storage.ObjectStore, key string) (int, error) {
	if objects == nil {
		return 0, fmt.Errorf("object store is required")
	}
	reader, err := objects.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("fetch archive %s: %w", key, err)
	}
	defer func() { _ = reader.Close() }()
	return l.load(ctx, key, reader)
}

func (l *Loader) load(ctx context.Context, source string, raw io.Reader) (int, error) {
	started := time.Now()

	gz, err := gzip.NewReader(raw)
	if err != nil {
		return 0, fmt.Errorf("read gzip archive %s: %w", source, err)
	}
	defer func() { _ = gz.Close() }()

	reader := csv.NewReader(gz)

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read archive header %s: %w", source, err)
	}
	columns, err := mapColumns(header)
	if err != nil {
		return 0, fmt.Errorf("archive %s: %w", source, err)
	}

	var (
		inserted int
		line     = 1
		batch    = make([]store.Record, 0, batchSize)
	)
	for {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return inserted, fmt.Errorf("archive %s line %d: %w", source, line+1, err)
		}
		line++
		record, err := parseRecord(columns, row)
		if err != nil {
			return inserted, fmt.Errorf("archive %s line %d: %w", source, line, err)
		}
		batch = append(batch, record)
		if len(batch) == batchSize {
			count, err := l.inserter.InsertRecords(ctx, batch)
			inserted += count
			if err != nil {
				return inserted, fmt.Errorf("insert batch from %s: %w", source, err)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		count, err := l.inserter.InsertRecords(ctx, batch)
		inserted += count
		if err != nil {
			return inserted, fmt.Errorf("insert batch from %s: %w", source, err)
		}
	}

	observability.AddIngestedRows(inserted)
	l.logger.Info("archive ingested",
		slog.String("source", source),
		slog.Int("rows_inserted", inserted),
		slog.Int("rows_read", line-1),
		slog.Duration("elapsed", time.Since(started)),
	)
	return inserted, nil
}

func mapColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("missing column %q in header", required)
		}
	}
	return columns, nil
}

func parseRecord(columns map[string]int, row []string) (store.Record, error) {
	field := func(name string) string {
		idx := columns[name]
		if idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	ft, err := strconv.ParseInt(field("ft"), 10, 64)
	if err != nil {
		return store.Record{}, fmt.Errorf("parse ft %q: %w", field("ft"), err)
	}
	lon, err := strconv.ParseFloat(field("lon"), 64)
	if err != nil {
		return store.Record{}, fmt.Errorf("parse lon %q: %w", field("lon"), err)
	}
	lat, err := strconv.ParseFloat(field("lat"), 64)
	if err != nil {
		return store.Record{}, fmt.Errorf("parse lat %q: %w", field("lat"), err)
	}

	record := store.Record{
		Day:              field("day"),
		ID:               field("id"),
		Name:             field("name"),
		FT:               ft,
		State:            field("state"),
		City:             field("city"),
		FormattedAddress: field("formatted_address"),
		Lon:              lon,
		Lat:              lat,
	}
	if record.Day == "" || record.ID == "" {
		return store.Record{}, fmt.Errorf("day and id are required")
	}
	return record, nil
}
