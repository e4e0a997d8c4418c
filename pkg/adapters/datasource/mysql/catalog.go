package mysql

import (
	"context"
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	sqlcheck "github.com/ekaya-inc/ekaya-askdb/pkg/sql"
)

// currentUserQueries are tried in order until one yields a name.
var currentUserQueries = []string{
	"SELECT USER() AS username",
	"SELECT CURRENT_USER AS username",
	"SELECT SESSION_USER() AS username",
	"SELECT SYSTEM_USER() AS username",
}

// Catalog reads MySQL metadata. MySQL has no schemas separate from
// databases, so every visible database is treated as a schema.
type Catalog struct{}

func lit(s string) string {
	return sqlcheck.QuoteLiteral(models.DialectMySQL, s)
}

func quote(name string) string {
	return sqlcheck.QuoteIdentifier(models.DialectMySQL, name)
}

type queryFunc func(ctx context.Context, sql string) (*models.ResultSet, error)

// currentUser returns the first non-empty user name with the @host part removed.
func currentUser(ctx context.Context, query queryFunc) (string, error) {
	var lastErr error
	for _, sql := range currentUserQueries {
		rs, err := query(ctx, sql)
		if err != nil {
			lastErr = err
			continue
		}
		if name := stripHost(datasource.FirstValue(rs)); name != "" {
			return name, nil
		}
	}
	if lastErr != nil {
		return "", fmt.Errorf("current user: %w", lastErr)
	}
	return "", nil
}

// stripHost turns 'app@10.0.0.%' into 'app'.
func stripHost(user string) string {
	if i := strings.IndexByte(user, '@'); i >= 0 {
		return user[:i]
	}
	return user
}

func (Catalog) CurrentUser(ctx context.Context, q datasource.Querier) (string, error) {
	return currentUser(ctx, func(ctx context.Context, sql string) (*models.ResultSet, error) {
		return q.Query(ctx, sql, datasource.CatalogTimeout)
	})
}

func (Catalog) DatabaseName(ctx context.Context, q datasource.Querier) (string, error) {
	rs, err := q.Query(ctx, "SELECT DATABASE() AS db_name", datasource.CatalogTimeout)
	if err != nil {
		return "", err
	}
	return datasource.FirstValue(rs), nil
}

func (Catalog) ListSchemas(ctx context.Context, q datasource.Querier) ([]string, error) {
	rs, err := q.Query(ctx,
		"SHOW DATABASES WHERE `Database` NOT IN ('information_schema', 'mysql', 'performance_schema', 'sys')",
		datasource.CatalogTimeout)
	if err != nil {
		return nil, err
	}
	return datasource.FirstColumnValues(rs), nil
}

// FallbackSchema is the connected database, or "mysql" when none was selected.
func (Catalog) FallbackSchema(database, _ string) string {
	if database == "" {
		return "mysql"
	}
	return database
}

func (c Catalog) SyntheticSchema(database, currentUser string) string {
	return c.FallbackSchema(database, currentUser)
}

// ListTables uses SHOW TABLES, whose only column is named after the database,
// and then best-effort row estimates from information_schema.
func (Catalog) ListTables(ctx context.Context, q datasource.Querier, schema string) ([]datasource.TableRef, error) {
	rs, err := q.Query(ctx, "SHOW TABLES FROM "+quote(schema), datasource.CatalogTimeout)
	if err != nil {
		return nil, err
	}
	names := datasource.FirstColumnValues(rs)

	estimates := map[string]int64{}
	if len(names) > 0 {
		stats, err := q.Query(ctx, fmt.Sprintf(`
			SELECT TABLE_NAME AS table_name, TABLE_ROWS AS row_estimate
			FROM information_schema.TABLES
			WHERE TABLE_SCHEMA = %s AND TABLE_TYPE = 'BASE TABLE'`, lit(schema)), datasource.CatalogTimeout)
		if err == nil {
			for _, row := range stats.Rows {
				if n, ok := datasource.Int64Value(row, "row_estimate"); ok {
					estimates[datasource.StringValue(row, "table_name")] = n
				}
			}
		}
	}

	tables := make([]datasource.TableRef, 0, len(names))
	for _, name := range names {
		tables = append(tables, datasource.TableRef{Name: name, RowCountEstimate: estimates[name]})
	}
	return tables, nil
}

func (Catalog) ListColumns(ctx context.Context, q datasource.Querier, schema, table string) ([]models.Column, error) {
	rs, err := q.Query(ctx, fmt.Sprintf(`
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
	if err != nil {
		return nil, err
	}

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
	return columns, nil
}

func (Catalog) PrimaryKey(ctx context.Context, q datasource.Querier, schema, table string, _ []models.Column) ([]string, bool, error) {
	rs, err := q.Query(ctx, fmt.Sprintf(`
		SELECT COLUMN_NAME AS column_name
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = %s
		  AND TABLE_NAME = %s
		  AND CONSTRAINT_NAME = 'PRIMARY'
		ORDER BY ORDINAL_POSITION`, lit(schema), lit(table)), datasource.CatalogTimeout)
	if err != nil {
		return nil, false, err
	}
	return datasource.FirstColumnValues(rs), false, nil
}

func (Catalog) ForeignKeys(ctx context.Context, q datasource.Querier, schema string, tables []string) ([]models.Relationship, error) {
	if len(tables) == 0 {
		return nil, nil
	}
	rs, err := q.Query(ctx, fmt.Sprintf(`
		SELECT CONSTRAINT_NAME AS constraint_name,
		       TABLE_SCHEMA AS source_schema,
		       TABLE_NAME AS source_table,
		       COLUMN_NAME AS source_column,
		       REFERENCED_TABLE_SCHEMA AS target_schema,
		       REFERENCED_TABLE_NAME AS target_table,
		       REFERENCED_COLUMN_NAME AS target_column
		FROM INFORMATION_SCHEMA.KEY_COLUMN_USAGE
		WHERE TABLE_SCHEMA = %s
		  AND TABLE_NAME IN (%s)
		  AND REFERENCED_TABLE_NAME IS NOT NULL
		ORDER BY TABLE_NAME, CONSTRAINT_NAME, ORDINAL_POSITION`,
		lit(schema), sqlcheck.QuoteLiteralList(models.DialectMySQL, tables)), datasource.CatalogTimeout)
	if err != nil {
		return nil, err
	}
	return datasource.RelationshipsFromRows(rs), nil
}

func (Catalog) SampleQuery(schema, table string, columns []string, limit int) string {
	selectList := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = quote(c)
		}
		selectList = strings.Join(quoted, ", ")
	}
	return fmt.Sprintf("SELECT %s FROM %s LIMIT %d",
		selectList, sqlcheck.QualifiedName(models.DialectMySQL, schema, table), limit)
}

func (Catalog) DictionaryTables(context.Context, datasource.Querier, int) ([]models.Table, error) {
	return nil, nil
}

var _ datasource.Catalog = Catalog{}
