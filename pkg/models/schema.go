package models

// RelationshipKind classifies a discovered relationship.
type RelationshipKind string

// RelationshipForeignKey is the only kind discovery produces.
const RelationshipForeignKey RelationshipKind = "ForeignKey"

// SchemaGraph is the dialect-neutral description of a database handed to the translator.
// Built fresh per request and never persisted.
type SchemaGraph struct {
	Database         DatabaseInfo   `json:"database" yaml:"database"`
	TableCount       int            `json:"table_count" yaml:"table_count"`             // tables found across processed schemas
	ProcessedTables  int            `json:"processed_tables" yaml:"processed_tables"`   // tables actually detailed
	ProcessedSchemas int            `json:"processed_schemas" yaml:"processed_schemas"` // schemas that contributed tables
	Schemas          []string       `json:"schemas" yaml:"schemas"`
	Tables           []Table        `json:"tables" yaml:"tables"`
	Relationships    []Relationship `json:"relationships" yaml:"relationships"`
}

// DatabaseInfo identifies the connected database.
type DatabaseInfo struct {
	Dialect     Dialect `json:"dialect" yaml:"dialect"`
	Name        string  `json:"name" yaml:"name"`
	CurrentUser string  `json:"current_user" yaml:"current_user"`
}

// NewSchemaGraph returns an empty graph with non-nil slices.
func NewSchemaGraph(dialect Dialect) *SchemaGraph {
	return &SchemaGraph{
		Database:      DatabaseInfo{Dialect: dialect},
		Schemas:       []string{},
		Tables:        []Table{},
		Relationships: []Relationship{},
	}
}

// Table is one discovered table.
// PrimaryKey is always a subset of Columns names; SampleRows all share SampleColumns.
type Table struct {
	Owner              string   `json:"owner" yaml:"owner"` // schema, catalog or Oracle owner
	TableName          string   `json:"table_name" yaml:"table_name"`
	RowCountEstimate   int64    `json:"row_count_estimate,omitempty" yaml:"row_count_estimate,omitempty"`
	Columns            []Column `json:"columns" yaml:"columns"`
	PrimaryKey         []string `json:"primary_key" yaml:"primary_key"`
	PrimaryKeyInferred bool     `json:"primary_key_inferred,omitempty" yaml:"primary_key_inferred,omitempty"` // guessed from column names
	SampleColumns      []string `json:"sample_columns,omitempty" yaml:"sample_columns,omitempty"`
	SampleRows         []Row    `json:"sample_rows" yaml:"sample_rows,omitempty"`
}

// QualifiedName returns owner.table, or just the table when owner is empty.
func (t *Table) QualifiedName() string {
	if t.Owner == "" {
		return t.TableName
	}
	return t.Owner + "." + t.TableName
}

// ColumnNames returns column names in ordinal order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Column describes one table column. OrdinalPosition defines processing order.
type Column struct {
	Name            string `json:"name" yaml:"name"`
	DataType        string `json:"data_type" yaml:"data_type"`
	Length          *int64 `json:"length,omitempty" yaml:"length,omitempty"`
	Precision       *int64 `json:"precision,omitempty" yaml:"precision,omitempty"`
	Scale           *int64 `json:"scale,omitempty" yaml:"scale,omitempty"`
	Nullable        bool   `json:"nullable" yaml:"nullable"`
	OrdinalPosition int    `json:"ordinal_position" yaml:"ordinal_position"`
}

// Relationship is a foreign key edge between two columns.
// Targets may lie outside the processed tables.
type Relationship struct {
	Kind       RelationshipKind `json:"kind" yaml:"kind"`
	Constraint string           `json:"constraint,omitempty" yaml:"constraint,omitempty"`
	Source     ColumnRef        `json:"source" yaml:"source"`
	Target     ColumnRef        `json:"target" yaml:"target"`
}

// ColumnRef points at a schema-qualified column.
type ColumnRef struct {
	Schema string `json:"schema" yaml:"schema"`
	Table  string `json:"table" yaml:"table"`
	Column string `json:"column" yaml:"column"`
}
