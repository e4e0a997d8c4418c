package datasource

import (
	"context"
	"time"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// Session is a live connection to one database, owned by a Handle.
// Each dialect wraps its native driver object in one.
type Session interface {
	// Query runs a statement and returns every row. No safety checks are applied here.
	Query(ctx context.Context, query string) (*models.ResultSet, error)

	// Close releases the underlying connection or pool.
	Close() error
}

// Provider is the per-dialect connection capability set.
type Provider interface {
	// Dialect returns the tag this provider stamps on every handle it creates.
	Dialect() models.Dialect

	// Connect tries each connection variant in priority order under a short
	// per-attempt timeout and verifies the winner with a trivial query.
	// Failures are returned as *apperrors.ConnectionError.
	Connect(ctx context.Context, cfg *models.ConnectionConfig) (*Handle, error)

	// ExecuteQuery runs sql on the handle's session and returns the raw driver
	// error on failure. Callers wanting the safety gate, the timeout race and
	// error translation go through QueryExecutor.
	ExecuteQuery(ctx context.Context, h *Handle, sql string) (*models.ResultSet, error)

	// CloseConnection releases the handle. Safe to call more than once.
	CloseConnection(ctx context.Context, h *Handle) error

	// CurrentUser returns the session user as the server reports it.
	CurrentUser(ctx context.Context, h *Handle) (string, error)

	// Errors returns the dialect's driver code lookup table.
	Errors() *ErrorTable
}

// ProviderLookup resolves the provider for a dialect tag.
type ProviderLookup interface {
	Provider(dialect models.Dialect) (Provider, error)
}

// CatalogTimeout is passed by catalogs to select the querier's configured
// catalog timeout.
const CatalogTimeout time.Duration = 0

// Querier runs catalog SQL with a per-call timeout. A non-positive timeout
// selects the querier's catalog timeout. QueryExecutor.Querier binds one to a
// handle.
type Querier interface {
	Query(ctx context.Context, sql string, timeout time.Duration) (*models.ResultSet, error)
}

// Catalog holds one dialect's metadata queries and their fallback chains.
// Methods return errors for the discovery engine to log; fallbacks that the
// dialect itself defines (alternate system views, probe lists) happen inside.
type Catalog interface {
	// CurrentUser returns the bare session user name.
	CurrentUser(ctx context.Context, q Querier) (string, error)

	// DatabaseName returns the connected database (or service) name.
	DatabaseName(ctx context.Context, q Querier) (string, error)

	// ListSchemas returns non-system schemas in catalog order.
	ListSchemas(ctx context.Context, q Querier) ([]string, error)

	// FallbackSchema is used when ListSchemas fails outright.
	FallbackSchema(database, currentUser string) string

	// SyntheticSchema is used when ListSchemas succeeds but finds nothing.
	SyntheticSchema(database, currentUser string) string

	// ListTables returns the tables in schema, in catalog order.
	ListTables(ctx context.Context, q Querier, schema string) ([]TableRef, error)

	// ListColumns returns all columns of a table ordered by ordinal position.
	ListColumns(ctx context.Context, q Querier, schema, table string) ([]models.Column, error)

	// PrimaryKey returns key column names in key order. inferred is true when
	// the names were guessed rather than read from a constraint.
	PrimaryKey(ctx context.Context, q Querier, schema, table string, columns []models.Column) (pk []string, inferred bool, err error)

	// ForeignKeys returns every foreign key whose source table is in tables,
	// using a single catalog query.
	ForeignKeys(ctx context.Context, q Querier, schema string, tables []string) ([]models.Relationship, error)

	// SampleQuery builds a row-capped SELECT of columns from schema.table.
	SampleQuery(schema, table string, columns []string, limit int) string

	// DictionaryTables describes system dictionary views, for when no user
	// tables were found at all. Dialects without such a fallback return nil.
	DictionaryTables(ctx context.Context, q Querier, maxColumns int) ([]models.Table, error)
}
