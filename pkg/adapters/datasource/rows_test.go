package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

func TestRowAccessors_IgnoreKeyCase(t *testing.T) {
	row := models.Row{
		"OWNER":       "HR",
		"NUM_ROWS":    "1200",
		"DATA_LENGTH": int64(22),
		"NULLABLE":    "Y",
		"is_nullable": "NO",
		"SCALE":       nil,
	}

	assert.Equal(t, "HR", StringValue(row, "owner"))
	assert.Equal(t, "", StringValue(row, "missing"))

	n, ok := Int64Value(row, "num_rows")
	assert.True(t, ok)
	assert.Equal(t, int64(1200), n)

	assert.Equal(t, int64(22), *OptionalInt64(row, "data_length"))
	assert.Nil(t, OptionalInt64(row, "scale"))

	assert.True(t, BoolValue(row, "nullable"))
	assert.False(t, BoolValue(row, "IS_NULLABLE"))
}

func TestInt64Value_Decimals(t *testing.T) {
	n, ok := Int64Value(models.Row{"n": "12.0"}, "n")
	assert.True(t, ok)
	assert.Equal(t, int64(12), n)

	_, ok = Int64Value(models.Row{"n": "abc"}, "n")
	assert.False(t, ok)
}

func TestFirstColumnValues(t *testing.T) {
	rs := &models.ResultSet{
		Columns: []string{"Database"},
		Rows:    []models.Row{{"Database": "shop"}, {"Database": ""}, {"Database": []byte("crm")}},
	}
	assert.Equal(t, []string{"shop", "crm"}, FirstColumnValues(rs))
	assert.Equal(t, "shop", FirstValue(rs))
	assert.Nil(t, FirstColumnValues(nil))
	assert.Equal(t, "", FirstValue(&models.ResultSet{}))
}
