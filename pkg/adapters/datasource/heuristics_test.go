package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

func cols(names ...string) []models.Column {
	out := make([]models.Column, len(names))
	for i, n := range names {
		out[i] = models.Column{Name: n, OrdinalPosition: i + 1}
	}
	return out
}

func TestGuessPrimaryKey(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		columns []models.Column
		want    []string
	}{
		{"plain id wins", "Orders", cols("customer_id", "ID", "order_id"), []string{"ID"}},
		{"singular table name with underscore", "Customers", cols("name", "customer_id"), []string{"customer_id"}},
		{"singular table name without underscore", "Categories", cols("label", "CategoryID"), []string{"CategoryID"}},
		{"first id suffix", "Audit", cols("note", "EventId", "UserId"), []string{"EventId"}},
		{"nothing qualifies", "Notes", cols("body", "created_at"), nil},
		{"no columns", "Empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GuessPrimaryKey(tt.table, tt.columns))
		})
	}
}
