package models

import (
	"fmt"
	"strings"
)

// Dialect identifies one of the supported SQL engines.
// The tag is decided once at connect time and carried on the handle.
type Dialect string

const (
	DialectOracle   Dialect = "oracle"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
	DialectMSSQL    Dialect = "mssql"
)

// AllDialects lists the supported dialects in display order.
var AllDialects = []Dialect{DialectOracle, DialectPostgres, DialectMySQL, DialectMSSQL}

// ParseDialect accepts the canonical names plus common aliases, case-insensitively.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "oracle", "ora":
		return DialectOracle, nil
	case "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	case "mssql", "sqlserver", "sql_server":
		return DialectMSSQL, nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", s)
	}
}

// DefaultPort returns the conventional listener port for the dialect.
func (d Dialect) DefaultPort() int {
	switch d {
	case DialectOracle:
		return 1521
	case DialectPostgres:
		return 5432
	case DialectMySQL:
		return 3306
	case DialectMSSQL:
		return 1433
	default:
		return 0
	}
}

// DisplayName returns the product name used in logs and CLI output.
func (d Dialect) DisplayName() string {
	switch d {
	case DialectOracle:
		return "Oracle Database"
	case DialectPostgres:
		return "PostgreSQL"
	case DialectMySQL:
		return "MySQL"
	case DialectMSSQL:
		return "Microsoft SQL Server"
	default:
		return string(d)
	}
}

func (d Dialect) String() string {
	return string(d)
}
