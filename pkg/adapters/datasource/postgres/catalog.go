package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	sqlcheck "github.com/ekaya-inc/ekaya-askdb/pkg/sql"
)

// Catalog reads PostgreSQL metadata from pg_catalog and information_schema.
type Catalog struct{}

func lit(s string) string {
	return sqlcheck.QuoteLiteral(models.DialectPostgres, s)
}

func (Catalog) CurrentUser(ctx context.Context, q datasource.Querier) (string, error) {
	rs, err := q.Query(ctx, "SELECT current_user AS username", datasource.CatalogTimeout)
	if err != nil {
		return "", err
	}
	return datasource.FirstValue(rs), nil
}

func (Catalog) DatabaseName(ctx context.Context, q datasource.Querier) (string, error) {
	rs, err := q.Query(ctx, "SELECT current_database() AS db_name", datasource.CatalogTimeout)
	if err != nil {
		return "", err
	}
	return datasource.FirstValue(rs), nil
}

// ListSchemas reads pg_tables and falls back to information_schema.tables,
// which some managed services expose when pg_catalog access is restricted.
func (Catalog) ListSchemas(ctx context.Context, q datasource.Querier) ([]string, error) {
	rs, err := q.Query(ctx, `
		SELECT DISTINCT schemaname AS schema_name
		FROM pg_catalog.pg_tables
		WHERE schemaname NOT LIKE 'pg\_%'
		  AND schemaname <> 'information_schema'
		ORDER BY schemaname`, datasource.CatalogTimeout)
	if err == nil {
		return datasource.FirstColumnValues(rs), nil
	}

	rs, fallbackErr := q.Query(ctx, `
		SELECT DISTINCT table_schema AS schema_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT LIKE 'pg\_%'
		  AND table_schema <> 'information_schema'
		ORDER BY table_schema`, datasource.CatalogTimeout)
	if fallbackErr != nil {
		return nil, fmt.Errorf("pg_tables: %w; information_schema: %v", err, fallbackErr)
	}
	return datasource.FirstColumnValues(rs), nil
}

func (Catalog) FallbackSchema(string, string) string {
	return "public"
}

func (Catalog) SyntheticSchema(_, currentUser string) string {
	return currentUser
}

func (Catalog) ListTables(ctx context.Context, q datasource.Querier, schema string) ([]datasource.TableRef, error) {
	rs, err := q.Query(ctx, fmt.Sprintf(`
		SELECT t.tablename AS table_name,
		       GREATEST(COALESCE(c.reltuples, 0), 0)::bigint AS row_estimate
		FROM pg_catalog.pg_tables t
		LEFT JOIN pg_catalog.pg_namespace n ON n.nspname = t.schemaname
		LEFT JOIN pg_catalog.pg_class c ON c.relname = t.tablename AND c.relnamespace = n.oid
		WHERE t.schemaname = %s
		ORDER BY t.tablename`, lit(schema)), datasource.CatalogTimeout)
	if err != nil {
		return nil, err
	}

	tables := make([]datasource.TableRef, 0, len(rs.Rows))
	for _, row := range rs.Rows {
		estimate, _ := datasource.Int64Value(row, "row_estimate")
		tables = append(tables, datasource.TableRef{
			Name:             datasource.StringValue(row, "table_name"),
			RowCountEstimate: estimate,
		})
	}
	return tables, nil
}

func (Catalog) ListColumns(ctx context.Context, q datasource.Querier, schema, table string) ([]models.Column, error) {
	rs, err := q.Query(ctx, fmt.Sprintf(`
		SELECT column_name,
		       data_type,
		       character_maximum_length AS data_length,
		       numeric_precision AS data_precision,
		       numeric_scale AS data_scale,
		       is_nullable,
		       ordinal_position
		FROM information_schema.columns
		WHERE table_schema = %s AND table_name = %s
		ORDER BY ordinal_position`, lit(schema), lit(table)), datasource.CatalogTimeout)
	if err != nil {
		return nil, err
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

func (Catalog) PrimaryKey(ctx context.Context, q datasource.Querier, schema, table string, _ []models.Column) ([]string, bool, error) {
	rs, err := q.Query(ctx, fmt.Sprintf(`
		SELECT kcu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		WHERE tc.constraint_type = 'PRIMARY KEY'
		  AND tc.table_schema = %s
		  AND tc.table_name = %s
		ORDER BY kcu.ordinal_position`, lit(schema), lit(table)), datasource.CatalogTimeout)
	if err != nil {
		return nil, false, err
	}
	return datasource.FirstColumnValues(rs), false, nil
}

// ForeignKeys pairs each source column with the referenced key column at the
// same position. Targets in other schemas are kept.
func (Catalog) ForeignKeys(ctx context.Context, q datasource.Querier, schema string, tables []string) ([]models.Relationship, error) {
	if len(tables) == 0 {
		return nil, nil
	}
	rs, err := q.Query(ctx, fmt.Sprintf(`
		SELECT kcu.constraint_name,
		       kcu.table_schema AS source_schema,
		       kcu.table_name AS source_table,
		       kcu.column_name AS source_column,
		       rkcu.table_schema AS target_schema,
		       rkcu.table_name AS target_table,
		       rkcu.column_name AS target_column
		FROM information_schema.referential_constraints AS rc
		JOIN information_schema.key_column_usage AS kcu
		  ON kcu.constraint_schema = rc.constraint_schema
		 AND kcu.constraint_name = rc.constraint_name
		JOIN information_schema.key_column_usage AS rkcu
		  ON rkcu.constraint_schema = rc.unique_constraint_schema
		 AND rkcu.constraint_name = rc.unique_constraint_name
		 AND rkcu.ordinal_position = kcu.position_in_unique_constraint
		WHERE kcu.table_schema = %s
		  AND kcu.table_name IN (%s)
		ORDER BY kcu.table_name, kcu.constraint_name, kcu.ordinal_position`,
		lit(schema), sqlcheck.QuoteLiteralList(models.DialectPostgres, tables)), datasource.CatalogTimeout)
	if err != nil {
		return nil, err
	}
	return datasource.RelationshipsFromRows(rs), nil
}

// SampleQuery quotes identifiers with pgx so mixed-case names survive.
func (Catalog) SampleQuery(schema, table string, columns []string, limit int) string {
	selectList := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = pgx.Identifier{c}.Sanitize()
		}
		selectList = strings.Join(quoted, ", ")
	}
	return fmt.Sprintf("SELECT %s FROM %s LIMIT %d", selectList, pgx.Identifier{schema, table}.Sanitize(), limit)
}

func (Catalog) DictionaryTables(context.Context, datasource.Querier, int) ([]models.Table, error) {
	return nil, nil
}

var _ datasource.Catalog = Catalog{}
