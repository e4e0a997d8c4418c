package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	sqlcheck "github.com/ekaya-inc/ekaya-askdb/pkg/sql"
)

const currentUserSQL = "SELECT SYS_CONTEXT('USERENV', 'SESSION_USER') AS username FROM dual"

// systemOwners never hold application tables.
var systemOwners = []string{"SYS", "SYSTEM", "MDSYS", "CTXSYS", "DBSNMP", "OUTLN", "XDB", "APEX_040200", "WMSYS"}

// dictionaryViews are described when a login can see no tables at all, so
// the translator can still answer questions about the dictionary itself.
var dictionaryViews = []models.Table{
	{Owner: "SYS", TableName: "ALL_TABLES", Columns: []models.Column{
		{Name: "OWNER", DataType: "VARCHAR2", OrdinalPosition: 1},
		{Name: "TABLE_NAME", DataType: "VARCHAR2", OrdinalPosition: 2},
		{Name: "TABLESPACE_NAME", DataType: "VARCHAR2", Nullable: true, OrdinalPosition: 3},
		{Name: "NUM_ROWS", DataType: "NUMBER", Nullable: true, OrdinalPosition: 4},
	}},
	{Owner: "SYS", TableName: "ALL_TAB_COLUMNS", Columns: []models.Column{
		{Name: "OWNER", DataType: "VARCHAR2", OrdinalPosition: 1},
		{Name: "TABLE_NAME", DataType: "VARCHAR2", OrdinalPosition: 2},
		{Name: "COLUMN_NAME", DataType: "VARCHAR2", OrdinalPosition: 3},
		{Name: "DATA_TYPE", DataType: "VARCHAR2", Nullable: true, OrdinalPosition: 4},
		{Name: "DATA_LENGTH", DataType: "NUMBER", OrdinalPosition: 5},
		{Name: "NULLABLE", DataType: "VARCHAR2", Nullable: true, OrdinalPosition: 6},
	}},
	{Owner: "SYS", TableName: "ALL_CONSTRAINTS", Columns: []models.Column{
		{Name: "OWNER", DataType: "VARCHAR2", OrdinalPosition: 1},
		{Name: "CONSTRAINT_NAME", DataType: "VARCHAR2", OrdinalPosition: 2},
		{Name: "CONSTRAINT_TYPE", DataType: "VARCHAR2", Nullable: true, OrdinalPosition: 3},
		{Name: "TABLE_NAME", DataType: "VARCHAR2", OrdinalPosition: 4},
	}},
	{Owner: "SYS", TableName: "ALL_VIEWS", Columns: []models.Column{
		{Name: "OWNER", DataType: "VARCHAR2", OrdinalPosition: 1},
		{Name: "VIEW_NAME", DataType: "VARCHAR2", OrdinalPosition: 2},
		{Name: "TEXT", DataType: "LONG", Nullable: true, OrdinalPosition: 3},
	}},
}

// Catalog reads Oracle metadata from the ALL_* dictionary views.
type Catalog struct{}

func lit(s string) string {
	return sqlcheck.QuoteLiteral(models.DialectOracle, s)
}

func (Catalog) CurrentUser(ctx context.Context, q datasource.Querier) (string, error) {
	rs, err := q.Query(ctx, currentUserSQL, datasource.CatalogTimeout)
	if err != nil {
		return "", err
	}
	return datasource.FirstValue(rs), nil
}

func (Catalog) DatabaseName(ctx context.Context, q datasource.Querier) (string, error) {
	rs, err := q.Query(ctx, "SELECT SYS_CONTEXT('USERENV', 'DB_NAME') AS db_name FROM dual", datasource.CatalogTimeout)
	if err != nil {
		return "", err
	}
	return datasource.FirstValue(rs), nil
}

func (Catalog) ListSchemas(ctx context.Context, q datasource.Querier) ([]string, error) {
	rs, err := q.Query(ctx, fmt.Sprintf(`
		SELECT DISTINCT owner AS schema_name
		FROM all_tables
		WHERE owner NOT IN (%s)
		ORDER BY owner`, sqlcheck.QuoteLiteralList(models.DialectOracle, systemOwners)), datasource.CatalogTimeout)
	if err != nil {
		return nil, err
	}
	return datasource.FirstColumnValues(rs), nil
}

// FallbackSchema is the session user: every Oracle user owns a schema of the same name.
func (Catalog) FallbackSchema(_, currentUser string) string {
	return currentUser
}

func (Catalog) SyntheticSchema(_, currentUser string) string {
	return currentUser
}

func (Catalog) ListTables(ctx context.Context, q datasource.Querier, schema string) ([]datasource.TableRef, error) {
	rs, err := q.Query(ctx, fmt.Sprintf(`
		SELECT table_name, num_rows AS row_estimate
		FROM all_tables
		WHERE owner = %s
		ORDER BY table_name`, lit(schema)), datasource.CatalogTimeout)
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
		SELECT column_name, data_type, data_length, data_precision, data_scale,
		       nullable, column_id AS ordinal_position
		FROM all_tab_columns
		WHERE owner = %s AND table_name = %s
		ORDER BY column_id`, lit(schema), lit(table)), datasource.CatalogTimeout)
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
			Nullable:        datasource.BoolValue(row, "nullable"),
			OrdinalPosition: int(ordinal),
		})
	}
	return columns
}

func (Catalog) PrimaryKey(ctx context.Context, q datasource.Querier, schema, table string, _ []models.Column) ([]string, bool, error) {
	rs, err := q.Query(ctx, fmt.Sprintf(`
		SELECT cols.column_name
		FROM all_constraints cons
		JOIN all_cons_columns cols
		  ON cons.constraint_name = cols.constraint_name
		 AND cons.owner = cols.owner
		WHERE cons.constraint_type = 'P'
		  AND cons.owner = %s
		  AND cons.table_name = %s
		ORDER BY cols.position`, lit(schema), lit(table)), datasource.CatalogTimeout)
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
		SELECT cons.constraint_name,
		       cons.owner AS source_schema,
		       cons.table_name AS source_table,
		       cols.column_name AS source_column,
		       r_cons.owner AS target_schema,
		       r_cons.table_name AS target_table,
		       r_cols.column_name AS target_column
		FROM all_constraints cons
		JOIN all_cons_columns cols
		  ON cons.constraint_name = cols.constraint_name
		 AND cons.owner = cols.owner
		JOIN all_constraints r_cons
		  ON cons.r_constraint_name = r_cons.constraint_name
		 AND cons.r_owner = r_cons.owner
		JOIN all_cons_columns r_cols
		  ON r_cons.constraint_name = r_cols.constraint_name
		 AND r_cons.owner = r_cols.owner
		 AND cols.position = r_cols.position
		WHERE cons.constraint_type = 'R'
		  AND cons.owner = %s
		  AND cons.table_name IN (%s)
		ORDER BY cons.table_name, cons.constraint_name, cols.position`,
		lit(schema), sqlcheck.QuoteLiteralList(models.DialectOracle, tables)), datasource.CatalogTimeout)
	if err != nil {
		return nil, err
	}
	return datasource.RelationshipsFromRows(rs), nil
}

// SampleQuery uses ROWNUM so it works on releases before 12c.
func (Catalog) SampleQuery(schema, table string, columns []string, limit int) string {
	selectList := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, c := range columns {
			quoted[i] = sqlcheck.QuoteIdentifier(models.DialectOracle, c)
		}
		selectList = strings.Join(quoted, ", ")
	}
	return fmt.Sprintf("SELECT %s FROM %s WHERE ROWNUM <= %d",
		selectList, sqlcheck.QualifiedName(models.DialectOracle, schema, table), limit)
}

// DictionaryTables describes the ALL_* views from the dictionary itself, and
// falls back to a built-in description when even that is not readable.
func (Catalog) DictionaryTables(ctx context.Context, q datasource.Querier, maxColumns int) ([]models.Table, error) {
	names := make([]string, len(dictionaryViews))
	for i, t := range dictionaryViews {
		names[i] = t.TableName
	}
	rs, err := q.Query(ctx, fmt.Sprintf(`
		SELECT table_name, column_name, data_type, data_length, data_precision, data_scale,
		       nullable, column_id AS ordinal_position
		FROM all_tab_columns
		WHERE owner = 'SYS' AND table_name IN (%s)
		ORDER BY table_name, column_id`, sqlcheck.QuoteLiteralList(models.DialectOracle, names)), datasource.CatalogTimeout)
	if err != nil || len(rs.Rows) == 0 {
		return capColumns(builtinDictionary(), maxColumns), nil
	}

	byName := map[string]*models.Table{}
	order := []string{}
	for _, row := range rs.Rows {
		name := datasource.StringValue(row, "table_name")
		t, ok := byName[name]
		if !ok {
			t = &models.Table{Owner: "SYS", TableName: name, PrimaryKey: []string{}, SampleRows: []models.Row{}}
			byName[name] = t
			order = append(order, name)
		}
		t.Columns = append(t.Columns, columnsFromRows(&models.ResultSet{Rows: []models.Row{row}})[0])
	}
	tables := make([]models.Table, 0, len(order))
	for _, name := range order {
		tables = append(tables, *byName[name])
	}
	return capColumns(tables, maxColumns), nil
}

func builtinDictionary() []models.Table {
	tables := make([]models.Table, len(dictionaryViews))
	for i, t := range dictionaryViews {
		t.Columns = append([]models.Column(nil), t.Columns...)
		t.PrimaryKey = []string{}
		t.SampleRows = []models.Row{}
		tables[i] = t
	}
	return tables
}

func capColumns(tables []models.Table, maxColumns int) []models.Table {
	if maxColumns <= 0 {
		return tables
	}
	for i := range tables {
		if len(tables[i].Columns) > maxColumns {
			tables[i].Columns = tables[i].Columns[:maxColumns]
		}
	}
	return tables
}

var _ datasource.Catalog = Catalog{}
