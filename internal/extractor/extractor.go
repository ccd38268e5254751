// Package extractor streams rows off the Postgres source for a single
// sweep of one process kind and decodes them into plain Go maps, batching
// by the configured buffer size. Row scanning goes through database/sql
// with the pgx/v5/stdlib driver rather than pgx's native pool API, so the
// same code paths can be driven by DATA-DOG/go-sqlmock in tests — see
// DESIGN.md.
package extractor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Nomadcxx/movieindexd/internal/logging"
	"github.com/Nomadcxx/movieindexd/internal/process"
)

// Row is one extracted record, column name to decoded Go value. List and
// object columns (json_agg/jsonb_build_object output) are decoded into
// []any/map[string]any. The modified_state column is not stored in the Row;
// it is carried on the enclosing Batch as LastModifiedState instead.
type Row map[string]any

// Batch is one buffer's worth of rows plus the watermark value carried by
// the last row in it — the value the runner will persist if the batch
// loads successfully.
type Batch struct {
	Rows             []Row
	LastModifiedState string
}

// columnsToDecodeAsJSON lists every column name the query builder emits via
// json_agg/jsonb_build_object across all seven process kinds. Scanning
// every row generically means this set has to be known up front rather
// than inferred from driver column types.
var columnsToDecodeAsJSON = map[string]bool{
	"genres": true, "persons": true,
	"directors_names": true, "actors_names": true, "writers_names": true,
	"actors": true, "writers": true, "directors": true,
	"actor": true, "writer": true, "director": true, "other": true, "films": true,
}

// Extractor runs one query against Postgres and yields decoded batches
// over a channel, closing it when rows are exhausted or ctx is cancelled.
type Extractor struct {
	db         *sql.DB
	bufferSize int
	logger     *logging.Logger
}

// New constructs an Extractor. db must already be opened against the
// pgx/v5/stdlib driver (or, in tests, a go-sqlmock driver registered under
// the same *sql.DB).
func New(db *sql.DB, bufferSize int, logger *logging.Logger) *Extractor {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Extractor{db: db, bufferSize: bufferSize, logger: logger}
}

// Stream runs query and sends Batches of at most e.bufferSize rows on the
// returned channel. The channel is closed when the result set is
// exhausted; a non-nil error on the returned error channel means the sweep
// must abort without committing any further watermark progress past the
// last successfully-sent batch.
func (e *Extractor) Stream(ctx context.Context, query string) (<-chan Batch, <-chan error) {
	batches := make(chan Batch)
	errs := make(chan error, 1)

	go func() {
		defer close(batches)
		defer close(errs)

		rows, err := e.db.QueryContext(ctx, query)
		if err != nil {
			errs <- fmt.Errorf("extractor query: %w", err)
			return
		}
		defer rows.Close()

		cols, err := rows.Columns()
		if err != nil {
			errs <- fmt.Errorf("extractor columns: %w", err)
			return
		}

		var pending []Row
		var lastModifiedState string

		flush := func() bool {
			if len(pending) == 0 {
				return true
			}
			batch := Batch{Rows: pending, LastModifiedState: lastModifiedState}
			pending = nil
			select {
			case batches <- batch:
				return true
			case <-ctx.Done():
				errs <- ctx.Err()
				return false
			}
		}

		for rows.Next() {
			row, modifiedState, err := scanRow(rows, cols)
			if err != nil {
				errs <- fmt.Errorf("extractor scan: %w", err)
				return
			}
			pending = append(pending, row)
			if modifiedState != "" {
				lastModifiedState = modifiedState
			}

			if len(pending) >= e.bufferSize {
				if !flush() {
					return
				}
			}
		}
		if err := rows.Err(); err != nil {
			errs <- fmt.Errorf("extractor rows: %w", err)
			return
		}
		flush()
	}()

	return batches, errs
}

// scanRow scans one row generically (database/sql has no reflection-based
// struct scan), decoding json_agg/jsonb_build_object columns from raw bytes
// and passing every other column through as-is. It returns the row's
// modified_state column separately, in the raw layout process.WatermarkLayout
// expects, so the caller never has to re-discover it by column name.
func scanRow(rows *sql.Rows, cols []string) (Row, string, error) {
	values := make([]any, len(cols))
	scanDests := make([]any, len(cols))
	for i := range values {
		scanDests[i] = &values[i]
	}
	if err := rows.Scan(scanDests...); err != nil {
		return nil, "", err
	}

	row := make(Row, len(cols))
	var modifiedState string
	for i, col := range cols {
		val := values[i]
		if columnsToDecodeAsJSON[col] {
			decoded, err := decodeJSONColumn(val)
			if err != nil {
				return nil, "", fmt.Errorf("column %q: %w", col, err)
			}
			row[col] = decoded
			continue
		}
		if col == "modified_state" {
			modifiedState = stringifyTimestamp(val)
			continue
		}
		row[col] = val
	}
	return row, modifiedState, nil
}

func decodeJSONColumn(val any) (any, error) {
	var raw []byte
	switch v := val.(type) {
	case nil:
		return []any{}, nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return nil, fmt.Errorf("unexpected type %T for json column", val)
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, err
	}
	return decoded, nil
}

func stringifyTimestamp(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case time.Time:
		return v.Format(process.WatermarkLayout)
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
