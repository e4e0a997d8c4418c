package sql

import (
	"strings"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// QuoteIdentifier quotes a schema, table or column name for dialect.
// SQL Server uses brackets, MySQL backticks, Oracle and PostgreSQL double quotes.
func QuoteIdentifier(dialect models.Dialect, name string) string {
	switch dialect {
	case models.DialectMSSQL:
		return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
	case models.DialectMySQL:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

// QualifiedName returns schema.table with both parts quoted.
// An empty schema yields just the quoted table.
func QualifiedName(dialect models.Dialect, schema, table string) string {
	if schema == "" {
		return QuoteIdentifier(dialect, table)
	}
	return QuoteIdentifier(dialect, schema) + "." + QuoteIdentifier(dialect, table)
}

// QuoteLiteral returns s as a single-quoted string literal.
// MySQL treats backslash as an escape character by default, so it is doubled there.
func QuoteLiteral(dialect models.Dialect, s string) string {
	if dialect == models.DialectMySQL {
		s = strings.ReplaceAll(s, `\`, `\\`)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// QuoteLiteralList renders values as a comma-separated list of literals for IN (...).
func QuoteLiteralList(dialect models.Dialect, values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = QuoteLiteral(dialect, v)
	}
	return strings.Join(quoted, ", ")
}
