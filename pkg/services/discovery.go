package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	sqlcheck "github.com/ekaya-inc/ekaya-askdb/pkg/sql"
)

// Discovery stage names used in warnings.
const (
	StageCurrentUser   = "detect_current_user"
	StageDatabaseName  = "detect_database_name"
	StageSchemas       = "enumerate_schemas"
	StageSelectSchemas = "select_schemas"
	StageTables        = "enumerate_tables"
	StageColumns       = "table_columns"
	StagePrimaryKey    = "table_primary_key"
	StageSample        = "table_sample"
	StageRelationships = "relationships"
	StageDictionary    = "dictionary_fallback"
)

// CommonSchemas are preferred after the current user's own schema.
var CommonSchemas = []string{"HR", "SCOTT", "DEMO", "APP", "USERS", "CUSTOMER", "PRODUCT", "dbo", "APPLICATION", "HISTORIC", "SOL"}

// DiscoveryOptions bounds how much of a catalog one discovery reads.
// A negative SampleRows turns sampling off.
type DiscoveryOptions struct {
	MaxSchemas         int
	MaxTablesPerSchema int
	MaxTablesHinted    int
	MaxColumns         int
	SampleRows         int
	SampleTimeout      time.Duration
	CommonSchemas      []string
}

// MaxSampleRows caps the rows fetched per table when sampling.
const MaxSampleRows = 30

// DefaultDiscoveryOptions returns the standard budgets.
func DefaultDiscoveryOptions() DiscoveryOptions {
	return DiscoveryOptions{
		MaxSchemas:         10,
		MaxTablesPerSchema: 30,
		MaxTablesHinted:    100,
		MaxColumns:         100,
		SampleRows:         MaxSampleRows,
		SampleTimeout:      10 * time.Second,
		CommonSchemas:      CommonSchemas,
	}
}

func (o DiscoveryOptions) withDefaults() DiscoveryOptions {
	d := DefaultDiscoveryOptions()
	if o.MaxSchemas <= 0 {
		o.MaxSchemas = d.MaxSchemas
	}
	if o.MaxTablesPerSchema <= 0 {
		o.MaxTablesPerSchema = d.MaxTablesPerSchema
	}
	if o.MaxTablesHinted <= 0 {
		o.MaxTablesHinted = d.MaxTablesHinted
	}
	if o.MaxColumns <= 0 {
		o.MaxColumns = d.MaxColumns
	}
	if o.SampleRows == 0 {
		o.SampleRows = d.SampleRows
	}
	if o.SampleRows > MaxSampleRows {
		o.SampleRows = MaxSampleRows
	}
	if o.SampleTimeout <= 0 {
		o.SampleTimeout = d.SampleTimeout
	}
	if o.CommonSchemas == nil {
		o.CommonSchemas = d.CommonSchemas
	}
	return o
}

// CatalogLookup resolves the metadata queries for a dialect.
type CatalogLookup interface {
	Catalog(dialect models.Dialect) (datasource.Catalog, error)
}

// QuerierSource hands out a Querier bound to a handle. The QueryExecutor is one.
type QuerierSource interface {
	Querier(h *datasource.Handle) datasource.Querier
}

// SchemaDiscoveryService builds a SchemaGraph for a connected database.
type SchemaDiscoveryService interface {
	// Discover never fails: every stage logs its errors and continues with
	// what it has, and a panic yields an empty graph.
	Discover(ctx context.Context, h *datasource.Handle, schemaHint string) *models.SchemaGraph
}

type schemaDiscoveryService struct {
	catalogs CatalogLookup
	queriers QuerierSource
	opts     DiscoveryOptions
	logger   *zap.Logger
}

// NewSchemaDiscoveryService creates a discovery service. Zero-valued option
// fields take the defaults.
func NewSchemaDiscoveryService(catalogs CatalogLookup, queriers QuerierSource, opts DiscoveryOptions, logger *zap.Logger) SchemaDiscoveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &schemaDiscoveryService{
		catalogs: catalogs,
		queriers: queriers,
		opts:     opts.withDefaults(),
		logger:   logger.Named("discovery"),
	}
}

// discoveryRun carries the state of one Discover call.
type discoveryRun struct {
	*schemaDiscoveryService
	catalog datasource.Catalog
	q       datasource.Querier
	graph   *models.SchemaGraph
}

func (s *schemaDiscoveryService) Discover(ctx context.Context, h *datasource.Handle, schemaHint string) (graph *models.SchemaGraph) {
	if h == nil {
		s.warn(&apperrors.DiscoveryWarning{Stage: "detect_dialect", Cause: apperrors.ErrHandleClosed})
		return models.NewSchemaGraph("")
	}
	dialect := h.Dialect()
	graph = models.NewSchemaGraph(dialect)

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Schema discovery panicked; returning empty graph",
				zap.String("dialect", string(dialect)),
				zap.Any("panic", r))
			graph = models.NewSchemaGraph(dialect)
		}
	}()

	catalog, err := s.catalogs.Catalog(dialect)
	if err != nil {
		s.warn(&apperrors.DiscoveryWarning{Stage: "detect_dialect", Cause: err})
		return graph
	}

	run := &discoveryRun{
		schemaDiscoveryService: s,
		catalog:                catalog,
		q:                      s.queriers.Querier(h),
		graph:                  graph,
	}
	run.detectIdentity(ctx, h)
	schemas := run.enumerateSchemas(ctx)
	selected, hinted := run.selectSchemas(schemas, schemaHint)
	run.processSchemas(ctx, selected, hinted)
	if graph.TableCount == 0 {
		run.dictionaryFallback(ctx)
	}

	s.logger.Info("Schema discovery completed",
		zap.String("dialect", string(dialect)),
		zap.String("database", graph.Database.Name),
		zap.Int("schemas", graph.ProcessedSchemas),
		zap.Int("table_count", graph.TableCount),
		zap.Int("processed_tables", graph.ProcessedTables),
		zap.Int("relationships", len(graph.Relationships)))
	return graph
}

func (r *discoveryRun) detectIdentity(ctx context.Context, h *datasource.Handle) {
	user, err := r.catalog.CurrentUser(ctx, r.q)
	if err != nil {
		r.warn(&apperrors.DiscoveryWarning{Stage: StageCurrentUser, Cause: err})
	}
	if user == "" {
		user = h.Username()
	}
	r.graph.Database.CurrentUser = user

	name, err := r.catalog.DatabaseName(ctx, r.q)
	if err != nil {
		r.warn(&apperrors.DiscoveryWarning{Stage: StageDatabaseName, Cause: err})
	}
	if name == "" {
		name = h.Database()
	}
	r.graph.Database.Name = name
}

func (r *discoveryRun) enumerateSchemas(ctx context.Context) []string {
	db, user := r.graph.Database.Name, r.graph.Database.CurrentUser

	schemas, err := r.catalog.ListSchemas(ctx, r.q)
	if err != nil {
		r.warn(&apperrors.DiscoveryWarning{Stage: StageSchemas, Cause: err})
		if fallback := r.catalog.FallbackSchema(db, user); fallback != "" {
			return []string{fallback}
		}
	}
	if len(schemas) == 0 {
		if synthetic := r.catalog.SyntheticSchema(db, user); synthetic != "" {
			r.logger.Debug("No schemas found, using synthetic schema", zap.String("schema", synthetic))
			return []string{synthetic}
		}
	}
	return schemas
}

// selectSchemas returns the processing order and whether a hint matched.
// The order is not capped here: schemas without tables do not use up a slot.
func (r *discoveryRun) selectSchemas(schemas []string, hint string) ([]string, bool) {
	hint = strings.TrimSpace(hint)
	if hint != "" {
		if flagged := sqlcheck.CheckValueForInjection("schema_hint", hint); flagged != nil {
			r.logger.Warn("Schema hint looks like SQL injection; ignoring it",
				zap.String("fingerprint", flagged.Fingerprint))
		} else if match, ok := matchSchema(schemas, hint); ok {
			return []string{match}, true
		} else {
			r.warn(&apperrors.DiscoveryWarning{
				Stage:  StageSelectSchemas,
				Schema: hint,
				Cause:  fmt.Errorf("schema hint %q not found among %d schemas", hint, len(schemas)),
			})
		}
	}
	return PrioritizeSchemas(schemas, r.graph.Database.CurrentUser, r.opts.CommonSchemas), false
}

func matchSchema(schemas []string, hint string) (string, bool) {
	for _, s := range schemas {
		if strings.EqualFold(s, hint) {
			return s, true
		}
	}
	return "", false
}

// PrioritizeSchemas orders schemas: the current user's schema, then common
// names in their declared order, then the rest in enumeration order. Matching
// is case-insensitive and each schema appears once.
func PrioritizeSchemas(schemas []string, currentUser string, common []string) []string {
	out := make([]string, 0, len(schemas))
	used := make(map[int]bool, len(schemas))
	take := func(name string) {
		for i, s := range schemas {
			if !used[i] && strings.EqualFold(s, name) {
				used[i] = true
				out = append(out, s)
				return
			}
		}
	}

	if currentUser != "" {
		take(currentUser)
	}
	for _, name := range common {
		take(name)
	}
	for i, s := range schemas {
		if !used[i] {
			used[i] = true
			out = append(out, s)
		}
	}
	return out
}

func (r *discoveryRun) processSchemas(ctx context.Context, schemas []string, hinted bool) {
	maxSchemas, maxTables := r.opts.MaxSchemas, r.opts.MaxTablesPerSchema
	if hinted {
		maxSchemas, maxTables = 1, r.opts.MaxTablesHinted
	}

	for _, schema := range schemas {
		if r.graph.ProcessedSchemas >= maxSchemas {
			break
		}
		if err := ctx.Err(); err != nil {
			r.warn(&apperrors.DiscoveryWarning{Stage: StageTables, Schema: schema, Cause: err})
			return
		}

		refs, err := r.catalog.ListTables(ctx, r.q, schema)
		if err != nil {
			r.warn(&apperrors.DiscoveryWarning{Stage: StageTables, Schema: schema, Cause: err})
			continue
		}
		if len(refs) == 0 {
			continue
		}

		r.graph.TableCount += len(refs)
		r.graph.ProcessedSchemas++
		r.graph.Schemas = append(r.graph.Schemas, schema)

		if len(refs) > maxTables {
			refs = refs[:maxTables]
		}
		names := make([]string, 0, len(refs))
		for _, ref := range refs {
			if ctx.Err() != nil {
				break
			}
			r.graph.Tables = append(r.graph.Tables, r.describeTable(ctx, schema, ref))
			r.graph.ProcessedTables++
			names = append(names, ref.Name)
		}

		rels, err := r.catalog.ForeignKeys(ctx, r.q, schema, names)
		if err != nil {
			r.warn(&apperrors.DiscoveryWarning{Stage: StageRelationships, Schema: schema, Cause: err})
			continue
		}
		r.graph.Relationships = append(r.graph.Relationships, rels...)
	}
}

// describeTable reads columns, primary key and a sample. Failures leave the
// affected parts empty.
func (r *discoveryRun) describeTable(ctx context.Context, schema string, ref datasource.TableRef) models.Table {
	table := models.Table{
		Owner:            schema,
		TableName:        ref.Name,
		RowCountEstimate: ref.RowCountEstimate,
		Columns:          []models.Column{},
		PrimaryKey:       []string{},
		SampleRows:       []models.Row{},
	}

	columns, err := r.catalog.ListColumns(ctx, r.q, schema, ref.Name)
	if err != nil {
		r.warn(&apperrors.DiscoveryWarning{Stage: StageColumns, Schema: schema, Table: ref.Name, Cause: err})
		return table
	}
	if len(columns) == 0 {
		return table
	}
	sort.SliceStable(columns, func(i, j int) bool {
		return columns[i].OrdinalPosition < columns[j].OrdinalPosition
	})

	pk, inferred, err := r.catalog.PrimaryKey(ctx, r.q, schema, ref.Name, columns)
	if err != nil {
		r.warn(&apperrors.DiscoveryWarning{Stage: StagePrimaryKey, Schema: schema, Table: ref.Name, Cause: err})
	}
	table.PrimaryKey = FilterPrimaryKey(pk, columns)
	table.PrimaryKeyInferred = inferred && len(table.PrimaryKey) > 0
	table.Columns = CapColumns(columns, table.PrimaryKey, r.opts.MaxColumns)

	if r.opts.SampleRows <= 0 {
		return table
	}
	sampleColumns := SampleColumns(table.Columns, table.PrimaryKey)
	rs, err := r.q.Query(ctx, r.catalog.SampleQuery(schema, ref.Name, sampleColumns, r.opts.SampleRows), r.opts.SampleTimeout)
	if err != nil {
		r.warn(&apperrors.DiscoveryWarning{Stage: StageSample, Schema: schema, Table: ref.Name, Cause: err})
		return table
	}
	table.SampleColumns = sampleColumns
	if rs != nil && rs.Rows != nil {
		table.SampleRows = rs.Rows
	}
	return table
}

// FilterPrimaryKey keeps only key names that match a real column, using the
// column's own spelling.
func FilterPrimaryKey(pk []string, columns []models.Column) []string {
	out := make([]string, 0, len(pk))
	seen := make(map[string]bool, len(pk))
	for _, name := range pk {
		for _, c := range columns {
			if strings.EqualFold(c.Name, name) && !seen[c.Name] {
				seen[c.Name] = true
				out = append(out, c.Name)
				break
			}
		}
	}
	return out
}

// CapColumns keeps at most limit columns. Primary-key columns are always
// kept; the highest-ordinal other columns are dropped first. The result is
// in ordinal order. columns must already be sorted by ordinal.
func CapColumns(columns []models.Column, pk []string, limit int) []models.Column {
	if limit <= 0 || len(columns) <= limit {
		return columns
	}
	isKey := make(map[string]bool, len(pk))
	for _, name := range pk {
		isKey[name] = true
	}

	room := limit - len(pk)
	out := make([]models.Column, 0, limit)
	for _, c := range columns {
		switch {
		case isKey[c.Name]:
			out = append(out, c)
		case room > 0:
			out = append(out, c)
			room--
		}
	}
	return out
}

// SampleColumns lists primary-key columns first, then the other columns in
// ordinal order.
func SampleColumns(columns []models.Column, pk []string) []string {
	out := make([]string, 0, len(columns))
	isKey := make(map[string]bool, len(pk))
	for _, name := range pk {
		isKey[name] = true
		out = append(out, name)
	}
	for _, c := range columns {
		if !isKey[c.Name] {
			out = append(out, c.Name)
		}
	}
	return out
}

func (r *discoveryRun) dictionaryFallback(ctx context.Context) {
	tables, err := r.catalog.DictionaryTables(ctx, r.q, r.opts.MaxColumns)
	if err != nil {
		r.warn(&apperrors.DiscoveryWarning{Stage: StageDictionary, Cause: err})
		return
	}
	if len(tables) == 0 {
		return
	}
	r.logger.Info("No tables visible; describing data dictionary views instead",
		zap.Int("views", len(tables)))
	r.graph.Tables = append(r.graph.Tables, tables...)
	r.graph.TableCount += len(tables)
	r.graph.ProcessedTables += len(tables)
}

func (s *schemaDiscoveryService) warn(w *apperrors.DiscoveryWarning) {
	s.logger.Warn("Schema discovery step failed",
		zap.String("stage", w.Stage),
		zap.String("schema", w.Schema),
		zap.String("table", w.Table),
		zap.String("error", logging.SanitizeError(w.Cause)))
}
