package oracle

import (
	"context"
	"encoding/hex"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

const verifySQL = "SELECT 1 AS TEST_CONNECTION FROM dual"

// Provider connects to Oracle through the pure-Go go-ora driver, so no
// Instant Client is needed.
type Provider struct {
	opts   datasource.ProviderOptions
	logger *zap.Logger
}

// NewProvider creates an Oracle provider.
func NewProvider(opts datasource.ProviderOptions) *Provider {
	opts = opts.WithDefaults()
	return &Provider{
		opts:   opts,
		logger: opts.Logger.Named("oracle"),
	}
}

func (p *Provider) Dialect() models.Dialect {
	return models.DialectOracle
}

func (p *Provider) Errors() *datasource.ErrorTable {
	return errorTable
}

func (p *Provider) Connect(ctx context.Context, cfg *models.ConnectionConfig) (*datasource.Handle, error) {
	t := resolveTarget(cfg, p.opts.ResolveHost)
	if cfg.ConnectionString != "" && t.descriptor == "" && !isEasyConnect(cfg.ConnectionString) {
		p.logger.Debug("Building easy connect target from host and port",
			zap.String("host", t.host),
			zap.Int("port", t.port),
			zap.String("service", t.service))
	}

	variants := connectVariants(cfg, t, p.opts.AttemptTimeout)
	attempts := make([]datasource.ConnectAttempt, 0, len(variants))
	for _, v := range variants {
		dsn := v.dsn
		attempts = append(attempts, datasource.ConnectAttempt{
			Name: v.name,
			Open: func(context.Context) (datasource.Session, error) {
				return datasource.OpenSQLSession("oracle", dsn, p.opts.PoolMaxConns, normalizeValue)
			},
		})
	}

	session, variant, err := datasource.ConnectFirst(ctx, attempts, p.opts.AttemptTimeout, verifySQL, p.logger)
	if err != nil {
		connErr := errorTable.ConnectionError(err, cfg.Password)
		p.logger.Warn("Oracle connection failed",
			zap.String("target", logging.SanitizeConnectionString(cfg.Identity())),
			zap.String("kind", string(connErr.Kind)))
		return nil, connErr
	}
	return datasource.NewHandle(models.DialectOracle, cfg, variant, session), nil
}

func (p *Provider) ExecuteQuery(ctx context.Context, h *datasource.Handle, sql string) (*models.ResultSet, error) {
	return datasource.RunOnHandle(ctx, models.DialectOracle, h, sql)
}

func (p *Provider) CloseConnection(_ context.Context, h *datasource.Handle) error {
	if h == nil {
		return nil
	}
	return h.CloseSession()
}

func (p *Provider) CurrentUser(ctx context.Context, h *datasource.Handle) (string, error) {
	rs, err := p.ExecuteQuery(ctx, h, currentUserSQL)
	if err != nil {
		return "", err
	}
	return datasource.FirstValue(rs), nil
}

// normalizeValue renders binary columns as hex and other byte slices as text.
func normalizeValue(dbType string, v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	switch strings.ToUpper(dbType) {
	case "RAW", "LONG RAW", "BLOB":
		return strings.ToUpper(hex.EncodeToString(b))
	}
	return string(b)
}

var _ datasource.Provider = (*Provider)(nil)
