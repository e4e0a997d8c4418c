package mssql

import (
	"context"
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// probeSchemas are checked one by one when neither INFORMATION_SCHEMA nor
// sys.schemas can be read.
var probeSchemas = []string{"dbo", "guest", "APPLICATION", "SOLUTION"}

// Catalog reads SQL Server metadata. Restricted logins often see only part
// of the catalog, so most lookups carry a fallback.
type Catalog struct{}

type queryFunc func(ctx context.Context, sql string) (*models.ResultSet, error)

// currentUser tries the database user, then the login, then the original login.
func currentUser(ctx context.Context, query queryFunc) (string, error) {
	rs, err := query(ctx, "SELECT USER_NAME() AS username")
	if err == nil {
		if name := datasource.FirstValue(rs); name != "" {
			return name, nil
		}
		rs, err = query(ctx, "SELECT SUSER_NAME() AS username")
		if err == nil {
			if name := datasource.FirstValue(rs); name != "" {
				return name, nil
			}
		}
	}

	rs, fallbackErr := query(ctx, "SELECT ORIGINAL_LOGIN() AS username")
	if fallbackErr != nil {
		if err == nil {
			err = fallbackErr
		}
		return "", fmt.Errorf("current user: %w", err)
	}
	return datasource.FirstValue(rs), nil
}

func catalogQuery(q datasource.Querier) queryFunc {
	return func(ctx context.Context, sql string) (*models.ResultSet, error) {
		return q.Query(ctx, sql, datasource.CatalogTimeout)
	}
}

func (Catalog) CurrentUser(ctx context.Context, q datasource.Querier) (string, error) {
	return currentUser(ctx, catalogQuery(q))
}

func (Catalog) DatabaseName(ctx context.Context, q datasource.Querier) (string, error) {
	rs, err := q.Query(ctx, "SELECT DB_NAME() AS db_name", datasource.CatalogTimeout)
	if err == nil {
		if name := datasource.FirstValue(rs); name != "" {
			return name, nil
		}
	}
	rs, fallbackErr := q.Query(ctx, "SELECT name AS db_name FROM sys.databases WHERE database_id = DB_ID()", datasource.CatalogTimeout)
	if fallbackErr != nil {
		if err == nil {
			err = fallbackErr
		}
		return "", err
	}
	return datasource.FirstValue(rs), nil
}

// ListSchemas walks INFORMATION_SCHEMA, then sys.schemas, then probes a
// short list of well-known schema names. It only fails when every probe fails.
func (Catalog) ListSchemas(ctx context.Context, q datasource.Querier) ([]string, error) {
	rs, err := q.Query(ctx, `
		SELECT DISTINCT TABLE_SCHEMA AS schema_name
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_SCHEMA`, datasource.CatalogTimeout)
	if err == nil {
		if schemas := datasource.FirstColumnValues(rs); len(schemas) > 0 {
			return schemas, nil
		}
	}

	rs, err = q.Query(ctx, `
		SELECT DISTINCT s.name AS schema_name
		FROM sys.schemas s
		JOIN sys.tables t ON t.schema_id = s.schema_id
		WHERE s.name NOT IN ('sys', 'guest', 'INFORMATION_SCHEMA')
		ORDER BY s.name`, datasource.CatalogTimeout)
	if err == nil {
		if schemas := datasource.FirstColumnValues(rs); len(schemas) > 0 {
			return schemas, nil
		}
	}

	found := make([]string, 0, len(probeSchemas))
	for _, schema := range probeSchemas {
		rs, err := q.Query(ctx, fmt.Sprintf(
			"SELECT COUNT(*) AS table_count FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = %s", lit(schema)), datasource.CatalogTimeout)
		if err != nil || len(rs.Rows) == 0 {
			continue
		}
		if n, ok := datasource.Int64Value(rs.Rows[0], "table_count"); ok && n > 0 {
			found = append(found, schema)
		}
	}
	if len(found) == 0 {
		found = append(found, "dbo")
	}
	return found, nil
}

func (Catalog) FallbackSchema(string, string) string {
	return "dbo"
}

func (Catalog) SyntheticSchema(_, currentUser string) string {
	return currentUser
}

// ListTables prefers sys.tables for partition row counts.
func (Catalog) ListTables(ctx context.Context, q datasource.Querier, schema string) ([]datasource.TableRef, error) {
	rs, err := q.Query(ctx, fmt.Sprintf(`
		SELECT t.name AS table_name,
		       COALESCE(SUM(p.rows), 0) AS row_estimate
		FROM sys.tables t
		JOIN sys.schemas s ON s.schema_id = t.schema_id
		LEFT JOIN sys.partitions p ON p.object_id = t.object_id AND p.index_id IN (0, 1)
		WHERE s.name = %s
		GROUP BY t.name
		ORDER BY t.name`, lit(schema)), datasource.CatalogTimeout)
	if err == nil && len(rs.Rows) > 0 {
		return tableRefs(rs), nil
	}

	rs, fallbackErr := q.Query(ctx, fmt.Sprintf(`
		SELECT TABLE_NAME AS table_name
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = %s AND TABLE_TYPE = 'BASE TABLE'
		ORDER BY TABLE_NAME`, lit(schema)), datasource.CatalogTimeout)
	if fallbackErr != nil {
		if err != nil {
			return nil, fmt.Errorf("sys.tables: %w; INFORMATION_SCHEMA: %v", err, fallbackErr)
		}
		return nil, fallbackErr
	}
	return tableRefs(rs), nil
}

func tableRefs(rs *models.ResultSet) []datasource.TableRef {
	tables := make([]datasource.TableRef, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		estimate, _ := datasource.Int64Value(row, "row_estimate")
		tables = append(tables, datasource.TableRef{
			Name:             datasource.StringValue(row, "table_name"),
			RowCountEstimate: estimate,
		})
	}
	return tables
}

func (Catalog) ListColumns(ctx context.Context, q datasource.Querier, schema, table string) ([]models.Column, error) {
	rs, err := q.Query(ctx, fmt.Sprintf(`
		SELECT c.name AS column_name,
		       ty.name AS data_type,
		       c.max_length AS data_length,
		       c.precision AS data_precision,
		       c.scale AS data_scale,
		       c.is_nullable,
		       c.column_id AS ordinal_position
		FROM sys.columns c
		JOIN sys.types ty ON ty.user_type_id = c.user_type_id
		WHERE c.object_id = OBJECT_ID(%s)
		ORDER BY c.column_id`, lit(buildFullyQualifiedName(schema, table))), datasource.CatalogTimeout)
	if err == nil {
		return columnsFromRows(rs), nil
	}

	rs, fallbackErr := q.Query(ctx, fmt.Sprintf(`
		SELECT COLUMN_NAME AS column_name,
		       DATA_TYPE AS data_type,
		       CHARACTER_MAXIMUM_LENGTH AS data_length,
		       NUMERIC_PRECISION AS data_precision,
		       NUMERIC_SCALE AS data_scale,
		       IS_NULLABLE AS is_nullable,
		       ORDINAL_POSITION AS ordinal_position
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = %s AND TABLE_NAME = %s
		ORDER BY ORDINAL_POSITION`, lit(schema), lit(table)), datasource.CatalogTimeout)
	if fallbackErr != nil {
		return nil, fmt.Errorf("sys.columns: %w; INFORMATION_SCHEMA: %v", err, fallbackErr)
	}
	return columnsFromRows(rs), nil
}

func columnsFromRows(rs *models.ResultSet) []models.Column {
	columns := make([]models.Column, 0, len(rs.Rows))
	for i, row := range rs.Rows {
		ordinal, ok := datasource.Int64Value(row, "ordinal_position")
		if !ok {
			ordinal = int64(i + 1)
		}
		columns = append(columns, models.Column{
			Name:            datasource.StringValue(row, "column_name"),
			DataType:        datasource.StringValue(row, "data_type"),
			Length:          datasource.OptionalInt64(row, "data_length"),
			Precision:       datasource.OptionalInt64(row, "data_precision"),
			Scale:           datasource.OptionalInt64(row, "data_scale"),
			Nullable:        datasource.BoolValue(row, "is_nullable"),
			OrdinalPosition: int(ordinal),
		})
	}
	return columns
}

// PrimaryKey reads sys.indexes, then INFORMATION_SCHEMA, and finally guesses
// from column names when neither is readable.
func (Catalog) PrimaryKey(ctx context.Context, q datasource.Querier, schema, table string, columns []models.Column) ([]string, bool, error) {
	rs, err := q.Query(ctx, fmt.Sprintf(`
		SELECT c.name AS column_name
		FROM sys.indexes i
		JOIN sys.index_columns ic ON ic.object_id = i.object_id AND ic.index_id = i.index_id
		JOIN sys.columns c ON c.object_id = ic.object_id AND c.column_id = ic.column_id
		WHERE i.is_primary_key = 1
		  AND i.object_id = OBJECT_ID(%s)
		ORDER BY ic.key_ordinal`, lit(buildFullyQualifiedName(schema, table))), datasource.CatalogTimeout)
	if err == nil {
		if pk := datasource.FirstColumnValues(rs); len(pk) > 0 {
			return pk, false, nil
		}
	}

	rs, err = q.Query(ctx, fmt.Sprintf(`
		SELECT kcu.COLUMN_NAME AS column_name
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
		  ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
		 AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
		WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
		  AND tc.TABLE_SCHEMA = %s
		  AND tc.TABLE_NAME = %s
		ORDER BY kcu.ORDINAL_POSITION`, lit(schema), lit(table)), datasource.CatalogTimeout)
	if err == nil {
		return datasource.FirstColumnValues(rs), false, nil
	}

	if guess := datasource.GuessPrimaryKey(table, columns); len(guess) > 0 {
		return guess, true, nil
	}
	return nil, false, nil
}

func (Catalog) ForeignKeys(ctx context.Context, q datasource.Querier, schema string, tables []string) ([]models.Relationship, error) {
	if len(tables) == 0 {
		return nil, nil
	}
	rs, err := q.Query(ctx, fmt.Sprintf(`
		SELECT fk.name AS constraint_name,
		       ss.name AS source_schema,
		       st.name AS source_table,
		       sc.name AS source_column,
		       ts.name AS target_schema,
		       tt.name AS target_table,
		       tc.name AS target_column
		FROM sys.foreign_key_columns fkc
		JOIN sys.foreign_keys fk ON fk.object_id = fkc.constraint_object_id
		JOIN sys.tables st ON st.object_id = fkc.parent_object_id
		JOIN sys.schemas ss ON ss.schema_id = st.schema_id
		JOIN sys.columns sc ON sc.object_id = fkc.parent_object_id AND sc.column_id = fkc.parent_column_id
		JOIN sys.tables tt ON tt.object_id = fkc.referenced_object_id
		JOIN sys.schemas ts ON ts.schema_id = tt.schema_id
		JOIN sys.columns tc ON tc.object_id = fkc.referenced_object_id AND tc.column_id = fkc.referenced_column_id
		WHERE ss.name = %s
		  AND st.name IN (%s)
		ORDER BY st.name, fk.name, fkc.constraint_column_id`,
		lit(schema), nlitList(tables)), datasource.CatalogTimeout)
	if err != nil {
		return nil, err
	}
	return datasource.RelationshipsFromRows(rs), nil
}

func nlitList(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = lit(v)
	}
	return strings.Join(quoted, ", ")
}

func (Catalog) SampleQuery(schema, table string, columns []string, limit int) string {
	selectList := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = quoteName(c)
		}
		selectList = strings.Join(quoted, ", ")
	}
	return fmt.Sprintf("SELECT TOP %d %s FROM %s", limit, selectList, buildFullyQualifiedName(schema, table))
}

func (Catalog) DictionaryTables(context.Context, datasource.Querier, int) ([]models.Table, error) {
	return nil, nil
}

var _ datasource.Catalog = Catalog{}
