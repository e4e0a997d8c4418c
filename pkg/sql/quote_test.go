package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

func TestQuoteIdentifier(t *testing.T) {
	tests := []struct {
		dialect  models.Dialect
		name     string
		expected string
	}{
		{models.DialectMSSQL, "Order Details", "[Order Details]"},
		{models.DialectMSSQL, "odd]name", "[odd]]name]"},
		{models.DialectMySQL, "order", "`order`"},
		{models.DialectMySQL, "we`ird", "`we``ird`"},
		{models.DialectPostgres, "User", `"User"`},
		{models.DialectOracle, `A"B`, `"A""B"`},
	}

	for _, tt := range tests {
		t.Run(string(tt.dialect)+"/"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, QuoteIdentifier(tt.dialect, tt.name))
		})
	}
}

func TestQualifiedName(t *testing.T) {
	assert.Equal(t, "[dbo].[Orders]", QualifiedName(models.DialectMSSQL, "dbo", "Orders"))
	assert.Equal(t, `"HR"."EMPLOYEES"`, QualifiedName(models.DialectOracle, "HR", "EMPLOYEES"))
	assert.Equal(t, "`orders`", QualifiedName(models.DialectMySQL, "", "orders"))
}

func TestQuoteLiteral(t *testing.T) {
	assert.Equal(t, "'O''Brien'", QuoteLiteral(models.DialectPostgres, "O'Brien"))
	assert.Equal(t, `'a\\b'`, QuoteLiteral(models.DialectMySQL, `a\b`))
	assert.Equal(t, `'a\b'`, QuoteLiteral(models.DialectOracle, `a\b`))
	assert.Equal(t, "'A', 'B''s'", QuoteLiteralList(models.DialectMSSQL, []string{"A", "B's"}))
}
