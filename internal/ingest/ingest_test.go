package ingest

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/footfall/footfall/internal/storage"
	"github.com/footfall/footfall/internal/store"
)

const archiveHeader = "day,id,name,ft,state,city,formatted_address,lon,lat\n"

func TestLoadFile(t *testing.T) {
	body := archiveHeader +
		"2023-07-01,cc-1,Champions Center,1500,TX,Houston,\"100 Main St, Houston, TX\",-95.36,29.76\n" +
		"2023-07-02,cc-1,Champions Center,1547,TX,Houston,\"100 Main St, Houston, TX\",-95.36,29.76\n"
	path := writeArchive(t, body)

	inserter := &fakeInserter{}
	loader := newTestLoader(t, inserter)

	inserted, err := loader.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if inserted != 2 {
		t.Fatalf("inserted = %d, want 2", inserted)
	}
	if len(inserter.records) != 2 {
		t.Fatalf("records = %d, want 2", len(inserter.records))
	}
	first := inserter.records[0]
	if first.Day != "2023-07-01" || first.ID != "cc-1" || first.FT != 1500 {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.FormattedAddress != "100 Main St, Houston, TX" {
		t.Fatalf("formatted_address = %q", first.FormattedAddress)
	}
	if first.Lon != -95.36 || first.Lat != 29.76 {
		t.Fatalf("coordinates = (%v, %v)", first.Lon, first.Lat)
	}
}

func TestLoadFileReorderedHeader(t *testing.T) {
	body := "ft,day,id,name,lat,lon,city,state,formatted_address\n" +
		"820,2023-07-01,bp-9,Bayside Plaza,37.77,-122.41,San Francisco,CA,9 Bay Rd\n"
	path := writeArchive(t, body)

	inserter := &fakeInserter{}
	loader := newTestLoader(t, inserter)

	if _, err := loader.LoadFile(context.Background(), path); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	record := inserter.records[0]
	if record.ID != "bp-9" || record.FT != 820 || record.City != "San Francisco" {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestLoadFileMissingColumn(t *testing.T) {
	path := writeArchive(t, "day,id,name,state,city,formatted_address,lon,lat\n")
	loader := newTestLoader(t, &fakeInserter{})

	_, err := loader.LoadFile(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), `missing column "ft"`) {
		t.Fatalf("error = %v, want missing column", err)
	}
}

func TestLoadFileBadRow(t *testing.T) {
	body := archiveHeader +
		"2023-07-01,cc-1,Champions Center,not-a-number,TX,Houston,addr,-95.36,29.76\n"
	path := writeArchive(t, body)
	loader := newTestLoader(t, &fakeInserter{})

	_, err := loader.LoadFile(context.Background(), path)
	if err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Fatalf("error = %v, want line 2 parse failure", err)
	}
}

func TestLoadFileNotGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.csv")
	if err := os.WriteFile(path, []byte(archiveHeader), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	loader := newTestLoader(t, &fakeInserter{})

	if _, err := loader.LoadFile(context.Background(), path); err == nil {
		t.Fatal("expected gzip error")
	}
}

func TestLoadFileBatches(t *testing.T) {
	var builder strings.Builder
	builder.WriteString(archiveHeader)
	for i := 0; i < batchSize+3; i++ {
		fmt.Fprintf(&builder, "2023-07-01,center-%d,Center %d,%d,TX,Houston,addr,-95.0,29.0\n", i, i, 100+i)
	}
	path := writeArchive(t, builder.String())

	inserter := &fakeInserter{}
	loader := newTestLoader(t, inserter)

	inserted, err := loader.LoadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if inserted != batchSize+3 {
		t.Fatalf("inserted = %d, want %d", inserted, batchSize+3)
	}
	if inserter.calls != 2 {
		t.Fatalf("insert calls = %d, want 2", inserter.calls)
	}
}

func TestLoadFileInsertFailure(t *testing.T) {
	body := archiveHeader +
		"2023-07-01,cc-1,Champions Center,1500,TX,Houston,addr,-95.36,29.76\n"
	path := writeArchive(t, body)

	inserter := &fakeInserter{err: errors.New("disk full")}
	loader := newTestLoader(t, inserter)

	if _, err := loader.LoadFile(context.Background(), path); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("error = %v, want insert failure", err)
	}
}

func TestLoadObject(t *testing.T) {
	body := archiveHeader +
		"2023-07-01,cc-1,Champions Center,1500,TX,Houston,addr,-95.36,29.76\n"
	objects := &fakeObjectStore{objects: map[string][]byte{"centers.csv.gz": compress(t, body)}}

	inserter := &fakeInserter{}
	loader := newTestLoader(t, inserter)

	inserted, err := loader.LoadObject(context.Background(), objects, "centers.csv.gz")
	if err != nil {
		t.Fatalf("LoadObject() error = %v", err)
	}
	if inserted != 1 {
		t.Fatalf("inserted = %d, want 1", inserted)
	}
}

func TestLoadObjectMissing(t *testing.T) {
	loader := newTestLoader(t, &fakeInserter{})

	_, err := loader.LoadObject(context.Background(), &fakeObjectStore{}, "missing.csv.gz")
	if !errors.Is(err, storage.ErrObjectNotFound) {
		t.Fatalf("error = %v, want ErrObjectNotFound", err)
	}
}

func newTestLoader(t *testing.T, inserter Inserter) *Loader {
	t.Helper()
	loader, err := NewLoader(inserter, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	return loader
}

func writeArchive(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "archive.csv.gz")
	if err := os.WriteFile(path, compress(t, body), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	return path
}

func compress(t *testing.T, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write([]byte(body)); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("close gzip writer: %v", err)
	}
	return buf.Bytes()
}

type fakeInserter struct {
	records []store.Record
	calls   int
	err     error
}

func (f *fakeInserter) InsertRecords(_ context.Context, records []store.Record) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	f.records = append(f.records, records...)
	return len(records), nil
}

type fakeObjectStore struct {
	objects map[string][]byte
}

func (f *fakeObjectStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	body, ok := f.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(body)), nil
}

func (f *fakeObjectStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	body, ok := f.objects[key]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(body))}, nil
}
