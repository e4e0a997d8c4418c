package datasource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// Catalog rows come back with whatever key casing the server uses
// (Oracle upper-cases unquoted aliases), so lookups ignore case.

// ColumnValue returns row[name], matching name case-insensitively.
func ColumnValue(row models.Row, name string) (any, bool) {
	if v, ok := row[name]; ok {
		return v, true
	}
	for k, v := range row {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// StringValue returns the column as a string, or "" for NULL or missing.
func StringValue(row models.Row, name string) string {
	v, ok := ColumnValue(row, name)
	if !ok || v == nil {
		return ""
	}
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		return fmt.Sprint(val)
	}
}

// Int64Value returns the column as an int64 and whether it held a number.
func Int64Value(row models.Row, name string) (int64, bool) {
	v, ok := ColumnValue(row, name)
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int32:
		return int64(val), true
	case int:
		return int64(val), true
	case int16:
		return int64(val), true
	case int8:
		return int64(val), true
	case uint64:
		return int64(val), true
	case uint32:
		return int64(val), true
	case float64:
		return int64(val), true
	case float32:
		return int64(val), true
	case string:
		return parseInt(val)
	case []byte:
		return parseInt(string(val))
	case fmt.Stringer:
		// Oracle NUMBER and pgtype.Numeric both print as decimals.
		return parseInt(val.String())
	default:
		return 0, false
	}
}

// OptionalInt64 is Int64Value returning nil for NULL.
func OptionalInt64(row models.Row, name string) *int64 {
	if v, ok := Int64Value(row, name); ok {
		return &v
	}
	return nil
}

// BoolValue interprets YES/Y/TRUE/1 as true.
func BoolValue(row models.Row, name string) bool {
	v, ok := ColumnValue(row, name)
	if !ok || v == nil {
		return false
	}
	switch val := v.(type) {
	case bool:
		return val
	case int64:
		return val != 0
	case int32:
		return val != 0
	case int:
		return val != 0
	}
	switch strings.ToUpper(strings.TrimSpace(StringValue(row, name))) {
	case "YES", "Y", "TRUE", "T", "1":
		return true
	}
	return false
}

// FirstColumnValues returns the first column of every row as strings.
func FirstColumnValues(rs *models.ResultSet) []string {
	if rs == nil || len(rs.Columns) == 0 {
		return nil
	}
	out := make([]string, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		if s := StringValue(row, rs.Columns[0]); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// FirstValue returns the first column of the first row as a string.
func FirstValue(rs *models.ResultSet) string {
	values := FirstColumnValues(rs)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func parseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), true
	}
	return 0, false
}

// RelationshipsFromRows reads foreign key rows that use the aliases
// constraint_name, source_schema, source_table, source_column,
// target_schema, target_table and target_column.
func RelationshipsFromRows(rs *models.ResultSet) []models.Relationship {
	if rs == nil {
		return nil
	}
	rels := make([]models.Relationship, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		rels = append(rels, models.Relationship{
			Kind:       models.RelationshipForeignKey,
			Constraint: StringValue(row, "constraint_name"),
			Source: models.ColumnRef{
				Schema: StringValue(row, "source_schema"),
				Table:  StringValue(row, "source_table"),
				Column: StringValue(row, "source_column"),
			},
			Target: models.ColumnRef{
				Schema: StringValue(row, "target_schema"),
				Table:  StringValue(row, "target_table"),
				Column: StringValue(row, "target_column"),
			},
		})
	}
	return rels
}
