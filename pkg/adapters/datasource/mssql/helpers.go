package mssql

import (
	"encoding/hex"
	"strconv"
	"strings"

	mssqldb "github.com/microsoft/go-mssqldb"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	sqlcheck "github.com/ekaya-inc/ekaya-askdb/pkg/sql"
)

// lit escapes a string for use in SQL Server string literals.
func lit(s string) string {
	return "N" + sqlcheck.QuoteLiteral(models.DialectMSSQL, s)
}

// quoteName is the client-side equivalent of QUOTENAME().
func quoteName(identifier string) string {
	return sqlcheck.QuoteIdentifier(models.DialectMSSQL, identifier)
}

// buildFullyQualifiedName builds a fully qualified table name: [schema].[table]
func buildFullyQualifiedName(schema, table string) string {
	return sqlcheck.QualifiedName(models.DialectMSSQL, schema, table)
}

// isBinaryType returns true for types whose bytes are not text.
func isBinaryType(sqlType string) bool {
	switch strings.ToUpper(sqlType) {
	case "BINARY", "VARBINARY", "IMAGE", "TIMESTAMP", "ROWVERSION":
		return true
	}
	return false
}

// isDecimalType returns true for exact numerics the driver hands back as text.
func isDecimalType(sqlType string) bool {
	switch strings.ToUpper(sqlType) {
	case "DECIMAL", "NUMERIC", "MONEY", "SMALLMONEY":
		return true
	}
	return false
}

// normalizeValue converts driver values to JSON-friendly forms.
func normalizeValue(dbType string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	switch {
	case strings.EqualFold(dbType, "UNIQUEIDENTIFIER"):
		var id mssqldb.UniqueIdentifier
		if err := id.Scan(b); err == nil {
			return id.String()
		}
	case isDecimalType(dbType):
		if f, err := strconv.ParseFloat(string(b), 64); err == nil {
			return f
		}
	case isBinaryType(dbType):
		return "0x" + strings.ToUpper(hex.EncodeToString(b))
	}
	return string(b)
}
