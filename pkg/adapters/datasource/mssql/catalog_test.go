package mssql

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	"github.com/ekaya-inc/ekaya-askdb/pkg/testhelpers"
)

var errDenied = errors.New("The SELECT permission was denied on the object")

func TestCatalog_CurrentUser(t *testing.T) {
	t.Run("database user", func(t *testing.T) {
		q := (&testhelpers.ScriptedQuerier{}).
			On("USER_NAME()", []string{"username"}, models.Row{"username": "dbo"})
		user, err := Catalog{}.CurrentUser(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, "dbo", user)
	})

	t.Run("empty user falls back to login", func(t *testing.T) {
		q := (&testhelpers.ScriptedQuerier{}).
			On("SUSER_NAME()", []string{"username"}, models.Row{"username": "report_login"}).
			On("USER_NAME()", []string{"username"}, models.Row{"username": ""})
		user, err := Catalog{}.CurrentUser(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, "report_login", user)
	})

	t.Run("error falls back to original login", func(t *testing.T) {
		q := (&testhelpers.ScriptedQuerier{}).
			Fail("SUSER_NAME()", errDenied).
			Fail("USER_NAME()", errDenied).
			On("ORIGINAL_LOGIN()", []string{"username"}, models.Row{"username": "CORP\\alice"})
		user, err := Catalog{}.CurrentUser(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, "CORP\\alice", user)
	})
}

func TestCatalog_DatabaseName_FallsBackToSysDatabases(t *testing.T) {
	q := (&testhelpers.ScriptedQuerier{}).
		On("sys.databases", []string{"db_name"}, models.Row{"db_name": "Northwind"}).
		On("DB_NAME()", []string{"db_name"}, models.Row{"db_name": nil})

	name, err := Catalog{}.DatabaseName(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "Northwind", name)
}

func TestCatalog_ListSchemas(t *testing.T) {
	t.Run("information schema", func(t *testing.T) {
		q := (&testhelpers.ScriptedQuerier{}).
			On("FROM INFORMATION_SCHEMA.TABLES", []string{"schema_name"},
				models.Row{"schema_name": "Sales"},
				models.Row{"schema_name": "dbo"})
		schemas, err := Catalog{}.ListSchemas(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, []string{"Sales", "dbo"}, schemas)
	})

	t.Run("sys.schemas when information schema is empty", func(t *testing.T) {
		q := (&testhelpers.ScriptedQuerier{}).
			On("SELECT DISTINCT TABLE_SCHEMA", []string{"schema_name"}).
			On("sys.schemas", []string{"schema_name"}, models.Row{"schema_name": "HumanResources"})
		schemas, err := Catalog{}.ListSchemas(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, []string{"HumanResources"}, schemas)
	})

	t.Run("probe list", func(t *testing.T) {
		q := (&testhelpers.ScriptedQuerier{}).
			Fail("SELECT DISTINCT TABLE_SCHEMA", errDenied).
			Fail("sys.schemas", errDenied).
			On("TABLE_SCHEMA = N'dbo'", []string{"table_count"}, models.Row{"table_count": int64(0)}).
			On("TABLE_SCHEMA = N'APPLICATION'", []string{"table_count"}, models.Row{"table_count": int64(12)}).
			Fail("COUNT(*)", errDenied)
		schemas, err := Catalog{}.ListSchemas(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, []string{"APPLICATION"}, schemas)
	})

	t.Run("dbo when nothing answers", func(t *testing.T) {
		q := (&testhelpers.ScriptedQuerier{}).Fail("", errDenied)
		schemas, err := Catalog{}.ListSchemas(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, []string{"dbo"}, schemas)
	})
}

func TestCatalog_ListTables_FallsBackToInformationSchema(t *testing.T) {
	q := (&testhelpers.ScriptedQuerier{}).
		Fail("FROM sys.tables", errDenied).
		On("INFORMATION_SCHEMA.TABLES", []string{"table_name"},
			models.Row{"table_name": "Customers"},
			models.Row{"table_name": "Orders"})

	tables, err := Catalog{}.ListTables(context.Background(), q, "dbo")
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "Customers", tables[0].Name)
	assert.Zero(t, tables[0].RowCountEstimate)
}

func TestCatalog_ListTables_PartitionRows(t *testing.T) {
	q := (&testhelpers.ScriptedQuerier{}).
		On("FROM sys.tables", []string{"table_name", "row_estimate"},
			models.Row{"table_name": "Orders", "row_estimate": int64(830)})

	tables, err := Catalog{}.ListTables(context.Background(), q, "dbo")
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, int64(830), tables[0].RowCountEstimate)
}

func TestCatalog_ListColumns_FallsBackToInformationSchema(t *testing.T) {
	q := (&testhelpers.ScriptedQuerier{}).
		Fail("sys.columns", errDenied).
		On("INFORMATION_SCHEMA.COLUMNS", []string{"column_name", "data_type", "is_nullable", "ordinal_position"},
			models.Row{"column_name": "CustomerID", "data_type": "nchar", "is_nullable": "NO", "ordinal_position": int64(1)},
			models.Row{"column_name": "Region", "data_type": "nvarchar", "is_nullable": "YES", "ordinal_position": int64(2)})

	columns, err := Catalog{}.ListColumns(context.Background(), q, "dbo", "Customers")
	require.NoError(t, err)
	require.Len(t, columns, 2)
	assert.False(t, columns[0].Nullable)
	assert.True(t, columns[1].Nullable)
}

func TestCatalog_PrimaryKey(t *testing.T) {
	columns := []models.Column{
		{Name: "OrderID", OrdinalPosition: 1},
		{Name: "CustomerID", OrdinalPosition: 2},
	}

	t.Run("sys.indexes", func(t *testing.T) {
		q := (&testhelpers.ScriptedQuerier{}).
			On("sys.indexes", []string{"column_name"}, models.Row{"column_name": "OrderID"})
		pk, inferred, err := Catalog{}.PrimaryKey(context.Background(), q, "dbo", "Orders", columns)
		require.NoError(t, err)
		assert.Equal(t, []string{"OrderID"}, pk)
		assert.False(t, inferred)
	})

	t.Run("information schema when sys.indexes is empty", func(t *testing.T) {
		q := (&testhelpers.ScriptedQuerier{}).
			On("sys.indexes", []string{"column_name"}).
			On("INFORMATION_SCHEMA.TABLE_CONSTRAINTS", []string{"column_name"}, models.Row{"column_name": "OrderID"})
		pk, inferred, err := Catalog{}.PrimaryKey(context.Background(), q, "dbo", "Orders", columns)
		require.NoError(t, err)
		assert.Equal(t, []string{"OrderID"}, pk)
		assert.False(t, inferred)
	})

	t.Run("heuristic when nothing is readable", func(t *testing.T) {
		q := (&testhelpers.ScriptedQuerier{}).Fail("", errDenied)
		pk, inferred, err := Catalog{}.PrimaryKey(context.Background(), q, "dbo", "Orders", columns)
		require.NoError(t, err)
		assert.Equal(t, []string{"OrderID"}, pk)
		assert.True(t, inferred)
	})
}

func TestCatalog_ForeignKeys(t *testing.T) {
	q := (&testhelpers.ScriptedQuerier{}).
		On("sys.foreign_key_columns", []string{"constraint_name", "source_schema", "source_table", "source_column", "target_schema", "target_table", "target_column"},
			models.Row{
				"constraint_name": "FK_Orders_Customers",
				"source_schema":   "dbo", "source_table": "Orders", "source_column": "CustomerID",
				"target_schema": "dbo", "target_table": "Customers", "target_column": "CustomerID",
			})

	rels, err := Catalog{}.ForeignKeys(context.Background(), q, "dbo", []string{"Orders", "Customers"})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "Customers", rels[0].Target.Table)
	assert.Contains(t, q.Queries()[0], "IN (N'Orders', N'Customers')")

	rels, err = Catalog{}.ForeignKeys(context.Background(), q, "dbo", nil)
	require.NoError(t, err)
	assert.Empty(t, rels)
}

func TestCatalog_SampleQuery(t *testing.T) {
	assert.Equal(t,
		"SELECT TOP 30 [OrderID], [Ship Name] FROM [dbo].[Orders]",
		Catalog{}.SampleQuery("dbo", "Orders", []string{"OrderID", "Ship Name"}, 30))
	assert.Equal(t, "SELECT TOP 5 * FROM [dbo].[Orders]", Catalog{}.SampleQuery("dbo", "Orders", nil, 5))
}
