package mysql

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// Provider connects to MySQL and MariaDB through go-sql-driver.
type Provider struct {
	opts   datasource.ProviderOptions
	logger *zap.Logger
}

// NewProvider creates a MySQL provider.
func NewProvider(opts datasource.ProviderOptions) *Provider {
	opts = opts.WithDefaults()
	return &Provider{
		opts:   opts,
		logger: opts.Logger.Named("mysql"),
	}
}

func (p *Provider) Dialect() models.Dialect {
	return models.DialectMySQL
}

func (p *Provider) Errors() *datasource.ErrorTable {
	return errorTable
}

func (p *Provider) Connect(ctx context.Context, cfg *models.ConnectionConfig) (*datasource.Handle, error) {
	ep := datasource.ResolveEndpoint(cfg, p.opts.ResolveHost)

	modes := tlsModes(cfg.SSL)
	attempts := make([]datasource.ConnectAttempt, 0, len(modes))
	for _, mode := range modes {
		dsn := buildDSN(cfg, ep, mode, p.opts.AttemptTimeout)
		attempts = append(attempts, datasource.ConnectAttempt{
			Name: "tls=" + mode,
			Open: func(context.Context) (datasource.Session, error) {
				return datasource.OpenSQLSession("mysql", dsn, p.opts.PoolMaxConns, normalizeValue)
			},
		})
	}

	session, variant, err := datasource.ConnectFirst(ctx, attempts, p.opts.AttemptTimeout, "SELECT 1", p.logger)
	if err != nil {
		connErr := errorTable.ConnectionError(err, cfg.Password)
		p.logger.Warn("MySQL connection failed",
			zap.String("target", logging.SanitizeConnectionString(cfg.Identity())),
			zap.String("kind", string(connErr.Kind)))
		return nil, connErr
	}
	return datasource.NewHandle(models.DialectMySQL, cfg, variant, session), nil
}

func (p *Provider) ExecuteQuery(ctx context.Context, h *datasource.Handle, sql string) (*models.ResultSet, error) {
	return datasource.RunOnHandle(ctx, models.DialectMySQL, h, sql)
}

func (p *Provider) CloseConnection(_ context.Context, h *datasource.Handle) error {
	if h == nil {
		return nil
	}
	return h.CloseSession()
}

func (p *Provider) CurrentUser(ctx context.Context, h *datasource.Handle) (string, error) {
	return currentUser(ctx, func(ctx context.Context, sql string) (*models.ResultSet, error) {
		return p.ExecuteQuery(ctx, h, sql)
	})
}

// normalizeValue turns the text protocol's byte slices into numbers where
// the column type says they are numbers.
func normalizeValue(dbType string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	s := string(b)
	switch strings.ToUpper(dbType) {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "BIGINT", "YEAR":
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	case "UNSIGNED TINYINT", "UNSIGNED SMALLINT", "UNSIGNED MEDIUMINT", "UNSIGNED INT", "UNSIGNED BIGINT":
		if u, err := strconv.ParseUint(s, 10, 64); err == nil {
			return u
		}
	case "DECIMAL", "FLOAT", "DOUBLE":
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

var _ datasource.Provider = (*Provider)(nil)
