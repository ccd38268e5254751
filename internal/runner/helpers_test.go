package runner

import (
	"database/sql"
	"database/sql/driver"
	"io"
	"strings"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// sqlmockDB pairs an opened *sql.DB with its sqlmock.Sqlmock controller.
type sqlmockDB struct {
	db   *sql.DB
	mock sqlmock.Sqlmock
}

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

// driverValue is any value acceptable to sqlmock.NewRows.AddRow.
type driverValue = any

func toDriverRow(values []driverValue) []driver.Value {
	out := make([]driver.Value, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func httpBody(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}
