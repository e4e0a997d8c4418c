package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// DefaultDatabase is used when the config names no database.
const DefaultDatabase = "master"

// Provider connects to SQL Server through go-mssqldb.
type Provider struct {
	opts   datasource.ProviderOptions
	logger *zap.Logger
}

// NewProvider creates a SQL Server provider.
func NewProvider(opts datasource.ProviderOptions) *Provider {
	opts = opts.WithDefaults()
	return &Provider{
		opts:   opts,
		logger: opts.Logger.Named("mssql"),
	}
}

func (p *Provider) Dialect() models.Dialect {
	return models.DialectMSSQL
}

func (p *Provider) Errors() *datasource.ErrorTable {
	return errorTable
}

// Connect tries an encrypted session first and falls back to login-only
// encryption for servers without a usable certificate.
func (p *Provider) Connect(ctx context.Context, cfg *models.ConnectionConfig) (*datasource.Handle, error) {
	ep := datasource.ResolveEndpoint(cfg, p.opts.ResolveHost)
	if ep.Database == "" {
		ep.Database = DefaultDatabase
	}

	attempts := make([]datasource.ConnectAttempt, 0, len(encryptVariants))
	for _, variant := range encryptVariants {
		dsn := buildConnectionString(cfg, ep, variant, p.opts.AttemptTimeout)
		attempts = append(attempts, datasource.ConnectAttempt{
			Name: variant.name,
			Open: func(context.Context) (datasource.Session, error) {
				return datasource.OpenSQLSession("sqlserver", dsn, p.opts.PoolMaxConns, normalizeValue)
			},
		})
	}

	session, variant, err := datasource.ConnectFirst(ctx, attempts, p.opts.AttemptTimeout, "SELECT 1", p.logger)
	if err != nil {
		connErr := errorTable.ConnectionError(err, cfg.Password)
		p.logger.Warn("SQL Server connection failed",
			zap.String("target", logging.SanitizeConnectionString(cfg.Identity())),
			zap.String("kind", string(connErr.Kind)))
		return nil, connErr
	}
	return datasource.NewHandle(models.DialectMSSQL, cfg, variant, session), nil
}

func (p *Provider) ExecuteQuery(ctx context.Context, h *datasource.Handle, sql string) (*models.ResultSet, error) {
	return datasource.RunOnHandle(ctx, models.DialectMSSQL, h, sql)
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

var _ datasource.Provider = (*Provider)(nil)
