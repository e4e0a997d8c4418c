package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// ValueNormalizer converts a scanned driver value into something that renders
// cleanly in JSON and YAML. dbType is the driver's DatabaseTypeName.
type ValueNormalizer func(dbType string, v any) any

// DefaultNormalizer turns byte slices into strings and leaves everything else alone.
func DefaultNormalizer(_ string, v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// SQLSession adapts a database/sql pool to Session. MySQL, SQL Server and
// Oracle all go through it.
type SQLSession struct {
	db        *sql.DB
	normalize ValueNormalizer
}

// NewSQLSession wraps db. A nil normalizer means DefaultNormalizer.
func NewSQLSession(db *sql.DB, normalize ValueNormalizer) *SQLSession {
	if normalize == nil {
		normalize = DefaultNormalizer
	}
	return &SQLSession{db: db, normalize: normalize}
}

// OpenSQLSession opens a pool for driverName and sizes it for a single request.
// The pool is not verified; ConnectFirst does that.
func OpenSQLSession(driverName, dsn string, maxConns int32, normalize ValueNormalizer) (*SQLSession, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(int(maxConns))
		db.SetMaxIdleConns(int(maxConns))
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	return NewSQLSession(db, normalize), nil
}

// DB exposes the pool for dialect-specific work.
func (s *SQLSession) DB() *sql.DB {
	return s.db
}

func (s *SQLSession) Query(ctx context.Context, query string) (*models.ResultSet, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return ScanRows(rows, s.normalize)
}

func (s *SQLSession) Close() error {
	return s.db.Close()
}

// ScanRows drains rows into a ResultSet, keeping the server's column order.
func ScanRows(rows *sql.Rows, normalize ValueNormalizer) (*models.ResultSet, error) {
	if normalize == nil {
		normalize = DefaultNormalizer
	}

	columnNames, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to get column types: %w", err)
	}

	result := &models.ResultSet{
		Columns: columnNames,
		Rows:    make([]models.Row, 0),
	}
	for rows.Next() {
		values := make([]any, len(columnNames))
		valuePtrs := make([]any, len(columnNames))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		row := make(models.Row, len(columnNames))
		for i, col := range columnNames {
			val := values[i]
			if val != nil {
				val = normalize(columnTypes[i].DatabaseTypeName(), val)
			}
			row[col] = val
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}
