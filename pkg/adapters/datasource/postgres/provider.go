package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// Provider connects to PostgreSQL through pgx.
type Provider struct {
	opts   datasource.ProviderOptions
	logger *zap.Logger
}

// NewProvider creates a PostgreSQL provider.
func NewProvider(opts datasource.ProviderOptions) *Provider {
	opts = opts.WithDefaults()
	return &Provider{
		opts:   opts,
		logger: opts.Logger.Named("postgres"),
	}
}

func (p *Provider) Dialect() models.Dialect {
	return models.DialectPostgres
}

func (p *Provider) Errors() *datasource.ErrorTable {
	return errorTable
}

// Connect walks the sslmode chain and returns a handle over a small pgx pool.
func (p *Provider) Connect(ctx context.Context, cfg *models.ConnectionConfig) (*datasource.Handle, error) {
	ep := datasource.ResolveEndpoint(cfg, p.opts.ResolveHost)

	modes := sslModes(cfg.SSL)
	attempts := make([]datasource.ConnectAttempt, 0, len(modes))
	for _, mode := range modes {
		connStr := buildConnectionString(cfg, ep, mode)
		attempts = append(attempts, datasource.ConnectAttempt{
			Name: "sslmode=" + mode,
			Open: func(ctx context.Context) (datasource.Session, error) {
				return p.openPool(ctx, connStr)
			},
		})
	}

	session, variant, err := datasource.ConnectFirst(ctx, attempts, p.opts.AttemptTimeout, "SELECT 1", p.logger)
	if err != nil {
		connErr := errorTable.ConnectionError(err, cfg.Password)
		p.logger.Warn("PostgreSQL connection failed",
			zap.String("target", logging.SanitizeConnectionString(cfg.Identity())),
			zap.String("kind", string(connErr.Kind)))
		return nil, connErr
	}
	return datasource.NewHandle(models.DialectPostgres, cfg, variant, session), nil
}

func (p *Provider) openPool(ctx context.Context, connStr string) (datasource.Session, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	poolConfig.MaxConns = p.opts.PoolMaxConns
	poolConfig.MinConns = 0
	poolConfig.ConnConfig.ConnectTimeout = p.opts.AttemptTimeout

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	return &session{pool: pool}, nil
}

func (p *Provider) ExecuteQuery(ctx context.Context, h *datasource.Handle, sql string) (*models.ResultSet, error) {
	return datasource.RunOnHandle(ctx, models.DialectPostgres, h, sql)
}

func (p *Provider) CloseConnection(_ context.Context, h *datasource.Handle) error {
	if h == nil {
		return nil
	}
	return h.CloseSession()
}

func (p *Provider) CurrentUser(ctx context.Context, h *datasource.Handle) (string, error) {
	rs, err := p.ExecuteQuery(ctx, h, "SELECT current_user AS username")
	if err != nil {
		return "", err
	}
	return datasource.FirstValue(rs), nil
}

// session adapts a pgx pool to datasource.Session.
type session struct {
	pool *pgxpool.Pool
}

func (s *session) Query(ctx context.Context, query string) (*models.ResultSet, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	result := &models.ResultSet{
		Columns: make([]string, len(fieldDescs)),
		Rows:    make([]models.Row, 0),
	}
	for i, fd := range fieldDescs {
		result.Columns[i] = fd.Name
	}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to read row values: %w", err)
		}
		row := make(models.Row, len(values))
		for i, col := range result.Columns {
			row[col] = normalizeValue(values[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return result, nil
}

func (s *session) Close() error {
	s.pool.Close()
	return nil
}

// normalizeValue converts pgx types that do not render usefully as JSON.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case [16]byte:
		return uuid.UUID(val).String()
	case pgtype.Numeric:
		if !val.Valid {
			return nil
		}
		if val.Exp >= 0 {
			if i, err := val.Int64Value(); err == nil && i.Valid {
				return i.Int64
			}
		}
		if f, err := val.Float64Value(); err == nil && f.Valid {
			return f.Float64
		}
		return nil
	case []byte:
		return string(val)
	default:
		return v
	}
}

var _ datasource.Provider = (*Provider)(nil)
