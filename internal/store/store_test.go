package store

import (
	"reflect"
	"testing"
)

func TestResultTruncate(t *testing.T) {
	result := Result{
		Columns: []string{"day", "ft"},
		Rows:    [][]any{{"2024-01-01", int64(100)}, {"2024-01-02", int64(200)}, {"2024-01-03", int64(300)}},
	}

	truncated := result.Truncate(2)
	if len(truncated.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(truncated.Rows))
	}
	if truncated.Rows[0][0] != "2024-01-01" || truncated.Rows[1][0] != "2024-01-02" {
		t.Fatal("truncation did not preserve row order")
	}

	if got := result.Truncate(10); len(got.Rows) != 3 {
		t.Fatalf("oversized limit should keep all rows, got %d", len(got.Rows))
	}
	if got := result.Truncate(0); len(got.Rows) != 0 {
		t.Fatalf("zero limit should drop all rows, got %d", len(got.Rows))
	}
}

func TestResultObjects(t *testing.T) {
	result := Result{
		Columns: []string{"avg_ft"},
		Rows:    [][]any{{1523.4}},
	}
	objects := result.Objects()
	want := []map[string]any{{"avg_ft": 1523.4}}
	if !reflect.DeepEqual(objects, want) {
		t.Fatalf("Objects() = %v, want %v", objects, want)
	}
}

func TestResultObjectsEmpty(t *testing.T) {
	objects := Result{Columns: []string{"a"}}.Objects()
	if len(objects) != 0 {
		t.Fatalf("Objects() on empty result = %v", objects)
	}
}
