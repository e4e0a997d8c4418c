// Package cli holds the askdb cobra commands. Commands are thin shells: they
// load configuration, wire an App and call into services.
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/config"
	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// shutdownTimeout bounds closing cached connections when a command ends.
const shutdownTimeout = 10 * time.Second

// options are the flags shared by every command.
type options struct {
	version    string
	configPath string
	logLevel   string
	conn       connFlags
}

// connFlags override the configured default target.
type connFlags struct {
	dialect          string
	host             string
	port             int
	database         string
	username         string
	password         string
	connectionString string
	ssl              bool
	schema           string
}

// NewRootCommand builds the askdb command tree.
func NewRootCommand(version string) *cobra.Command {
	o := &options{version: version}

	root := &cobra.Command{
		Use:   "askdb",
		Short: "Ask questions of Oracle, PostgreSQL, MySQL and SQL Server databases in plain language",
		Long: `askdb connects to a relational database, discovers its schema, turns a
natural-language question into SQL for that database's dialect, checks each
statement against a safety filter and runs it.

Examples:
  askdb ask --dialect postgres --host localhost --database shop --user reader "top 5 customers by revenue"
  askdb schema --dialect oracle --connection-string db:1521/ORCLPDB1 --user HR --schema HR
  askdb check --dialect mssql "DELETE FROM dbo.Orders"
  askdb mcp --config /etc/askdb/config.yaml`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&o.configPath, "config", config.DefaultPath, "Path to config.yaml")
	root.PersistentFlags().StringVar(&o.logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	root.AddCommand(
		newAskCommand(o),
		newSchemaCommand(o),
		newCheckCommand(),
		newDialectsCommand(),
		newMCPCommand(o),
	)
	return root
}

// addConnectionFlags registers the target database flags on cmd.
func addConnectionFlags(cmd *cobra.Command, f *connFlags) {
	cmd.Flags().StringVar(&f.dialect, "dialect", "", "Database engine: oracle, postgres, mysql, mssql")
	cmd.Flags().StringVar(&f.host, "host", "", "Database host")
	cmd.Flags().IntVar(&f.port, "port", 0, "Database port (default: the dialect's standard port)")
	cmd.Flags().StringVar(&f.database, "database", "", "Database, catalog or service name")
	cmd.Flags().StringVar(&f.username, "user", "", "Database user")
	cmd.Flags().StringVar(&f.password, "password", "", "Database password (prefer ASKDB_DB_PASSWORD)")
	cmd.Flags().StringVar(&f.connectionString, "connection-string", "", "Oracle easy-connect string host[:port]/service")
	cmd.Flags().BoolVar(&f.ssl, "ssl", false, "Require TLS where the driver supports it")
	cmd.Flags().StringVar(&f.schema, "schema", "", "Schema hint: discover only this schema")
}

// overlay applies the flags the user set on top of the configured default target.
func (f *connFlags) overlay(cmd *cobra.Command, base config.ConnectionConfig) config.ConnectionConfig {
	changed := cmd.Flags().Changed
	if changed("dialect") {
		base.Dialect = f.dialect
	}
	if changed("connection-string") {
		base.ConnectionString = f.connectionString
	}
	if changed("host") {
		base.Host = f.host
	}
	if changed("port") {
		base.Port = f.port
	}
	if changed("database") {
		base.Database = f.database
	}
	if changed("user") {
		base.Username = f.username
	}
	if changed("password") {
		base.Password = f.password
	}
	if changed("ssl") {
		base.SSL = f.ssl
	}
	if changed("schema") {
		base.SchemaHint = f.schema
	}
	return base
}

// connection returns the validated target for a command.
func (f *connFlags) connection(cmd *cobra.Command, base config.ConnectionConfig) (*models.ConnectionConfig, error) {
	base = f.overlay(cmd, base)
	if base.Dialect == "" {
		return nil, fmt.Errorf("no dialect: pass --dialect or set connection.dialect")
	}
	cfg, err := base.ToModel()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setup loads configuration and wires the App. The returned cleanup closes
// cached connections and flushes the logger.
func (o *options) setup() (*App, func(), error) {
	cfg, err := config.Load(o.configPath, o.version)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Configuration loaded",
		zap.String("version", cfg.Version),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model),
		zap.Int32("pool_max_conns", cfg.Datasource.PoolMaxConns))

	app, err := NewApp(cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.Close(ctx); err != nil {
			logger.Warn("Failed to close connections", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return app, cleanup, nil
}
