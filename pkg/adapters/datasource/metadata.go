package datasource

// TableRef is a table found by Catalog.ListTables.
type TableRef struct {
	Name             string
	RowCountEstimate int64 // 0 when the catalog has no estimate
}

// DialectInfo describes a registered dialect for CLI and MCP listings.
type DialectInfo struct {
	Dialect     string `json:"dialect"`      // "postgres", "mssql", ...
	DisplayName string `json:"display_name"` // "PostgreSQL", "Microsoft SQL Server"
	Description string `json:"description"`  // "PostgreSQL 12+ via pgx"
	DefaultPort int    `json:"default_port"`
}
