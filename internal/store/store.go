package store

import (
	"context"
	"fmt"
)

// Result is the shape returned by query execution: column names in select
// order plus rows in the order the store returned them.
type Result struct {
	Columns []string
	Rows    [][]any
}

// Truncate returns a copy limited to the first limit rows, preserving order.
func (r Result) Truncate(limit int) Result {
	if limit < 0 || len(r.Rows) <= limit {
		return r
	}
	return Result{Columns: r.Columns, Rows: r.Rows[:limit]}
}

// Objects zips columns and row values into one map per row.
func (r Result) Objects() []map[string]any {
	objects := make([]map[string]any, 0, len(r.Rows))
	for _, row := range r.Rows {
		object := make(map[string]any, len(r.Columns))
		for i, column := range r.Columns {
			if i < len(row) {
				object[column] = row[i]
			}
		}
		objects = append(objects, object)
	}
	return objects
}

// Querier is the read path consumed by the prompt-to-summary pipeline.
// Params bind positionally to the query's placeholders.
type Querier interface {
	ExecuteQuery(ctx context.Context, sqlText string, params []string) (Result, error)
}

// QueryError wraps a store-level failure for a specific statement: syntax
// errors, unknown columns, type mismatches.
type QueryError struct {
	SQL string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("query execution failed: %v", e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Center is one distinct shopping center as listed in the admin UI.
type Center struct {
	Name  string `json:"name"`
	ID    string `json:"id"`
	City  string `json:"city"`
	State string `json:"state"`
}

// TrendPoint is one day of foot traffic for a single center.
type TrendPoint struct {
	Day string `json:"day"`
	FT  int64  `json:"ft"`
}

// Record is one ingested foot-traffic row.
type Record struct {
	Day              string
	ID               string
	Name             string
	FT               int64
	State            string
	City             string
	FormattedAddress string
	Lon              float64
	Lat              float64
}
