package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/config"
	"github.com/ekaya-inc/ekaya-askdb/pkg/llm"
	"github.com/ekaya-inc/ekaya-askdb/pkg/services"

	// Dialect registrations.
	_ "github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource/mysql"
	_ "github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource/oracle"
	_ "github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource/postgres"
)

// App is the wired object graph shared by every command.
type App struct {
	Config    *config.Config
	Logger    *zap.Logger
	Providers *datasource.ProviderSet
	Registry  *datasource.ConnectionRegistry
	Executor  *datasource.QueryExecutor
	Discovery services.SchemaDiscoveryService

	ask    services.AskService
	askErr error
}

// NewApp wires providers, registry, executor, discovery and, when an llm
// provider is configured, the ask pipeline.
func NewApp(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: configuration is required", apperrors.ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	providers := datasource.NewProviderSet(datasource.ProviderOptions{
		AttemptTimeout: cfg.Datasource.ConnectAttemptTimeout,
		PoolMaxConns:   cfg.Datasource.PoolMaxConns,
		ResolveHost:    cfg.Datasource.HostResolver(),
		Logger:         logger,
	})
	registry := datasource.NewConnectionRegistry(providers, logger)
	executor := datasource.NewQueryExecutor(providers, cfg.Query.DefaultTimeout, logger)
	executor.SetCatalogTimeout(cfg.Query.CatalogTimeout)

	discovery := services.NewSchemaDiscoveryService(providers, executor, discoveryOptions(cfg), logger)

	app := &App{
		Config:    cfg,
		Logger:    logger,
		Providers: providers,
		Registry:  registry,
		Executor:  executor,
		Discovery: discovery,
	}

	completer, err := llm.NewCompleter(llmConfig(&cfg.LLM), logger)
	switch {
	case err == nil:
		translator := llm.NewLLMTranslator(completer, logger)
		app.ask = services.NewAskService(registry, discovery, executor, translator, cfg.Query.UserTimeout, logger)
	case errors.Is(err, apperrors.ErrNoTranslator):
		logger.Debug("No llm provider configured; ask is disabled")
		app.askErr = err
	default:
		logger.Warn("LLM provider unavailable; ask is disabled", zap.Error(err))
		app.askErr = err
	}
	return app, nil
}

// AskService returns the ask pipeline, or the reason it is unavailable.
func (a *App) AskService() (services.AskService, error) {
	if a.ask == nil {
		return nil, a.askErr
	}
	return a.ask, nil
}

// Close releases every cached connection.
func (a *App) Close(ctx context.Context) error {
	return a.Registry.Shutdown(ctx)
}

// discoveryOptions maps config budgets onto discovery options. A configured
// sample_rows of zero disables sampling.
func discoveryOptions(cfg *config.Config) services.DiscoveryOptions {
	opts := services.DiscoveryOptions{
		MaxSchemas:         cfg.Discovery.MaxSchemas,
		MaxTablesPerSchema: cfg.Discovery.MaxTablesPerSchema,
		MaxTablesHinted:    cfg.Discovery.MaxTablesHinted,
		MaxColumns:         cfg.Discovery.MaxColumns,
		SampleRows:         cfg.Discovery.SampleRows,
		SampleTimeout:      cfg.Query.SampleTimeout,
	}
	if opts.SampleRows == 0 {
		opts.SampleRows = -1
	}
	return opts
}

// llmConfig picks the API key matching the configured provider.
func llmConfig(c *config.LLMConfig) *llm.Config {
	key := c.OpenAIAPIKey
	if strings.EqualFold(strings.TrimSpace(c.Provider), llm.ProviderAnthropic) {
		key = c.AnthropicAPIKey
	}
	return &llm.Config{
		Provider:    c.Provider,
		Endpoint:    c.BaseURL,
		Model:       c.Model,
		APIKey:      key,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Timeout:     c.Timeout,
	}
}
