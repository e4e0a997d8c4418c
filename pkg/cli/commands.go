package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/config"
	"github.com/ekaya-inc/ekaya-askdb/pkg/mcp"
	"github.com/ekaya-inc/ekaya-askdb/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	sqlcheck "github.com/ekaya-inc/ekaya-askdb/pkg/sql"
)

// ErrUnsafe is returned by check when the statement is rejected, so the
// process exits non-zero.
var ErrUnsafe = errors.New("statement is unsafe")

func newAskCommand(o *options) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a natural-language question against a database",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, "text", "json"); err != nil {
				return err
			}
			app, cleanup, err := o.setup()
			if err != nil {
				return err
			}
			defer cleanup()

			conn, err := o.conn.connection(cmd, app.Config.Connection)
			if err != nil {
				return err
			}
			ask, err := app.AskService()
			if err != nil {
				return fmt.Errorf("ask is unavailable: %w", err)
			}

			res, err := ask.Ask(cmd.Context(), &models.AskRequest{
				Prompt:     strings.Join(args, " "),
				Connection: *conn,
			})
			if err != nil {
				return err
			}
			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			return writeAskResult(cmd.OutOrStdout(), res)
		},
	}
	addConnectionFlags(cmd, &o.conn)
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}

func newSchemaCommand(o *options) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Discover and print a database's schema graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format, "yaml", "json"); err != nil {
				return err
			}
			app, cleanup, err := o.setup()
			if err != nil {
				return err
			}
			defer cleanup()

			conn, err := o.conn.connection(cmd, app.Config.Connection)
			if err != nil {
				return err
			}
			h, err := app.Registry.Connect(cmd.Context(), conn)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Registry.Close(cmd.Context(), h); err != nil {
					app.Logger.Warn("Failed to release connection", zap.Error(err))
				}
			}()

			graph := app.Discovery.Discover(cmd.Context(), h, conn.SchemaHint)
			if format == "json" {
				return writeJSON(cmd.OutOrStdout(), graph)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(graph); err != nil {
				return fmt.Errorf("encode schema: %w", err)
			}
			return enc.Close()
		},
	}
	addConnectionFlags(cmd, &o.conn)
	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or json")
	return cmd
}

func newCheckCommand() *cobra.Command {
	var dialect string
	cmd := &cobra.Command{
		Use:   "check [sql]",
		Short: "Check a statement against the safety filter without connecting",
		Long: `Check a statement against the safety filter without connecting.
Reads the statement from stdin when no argument (or "-") is given.
Exits non-zero when the statement would be rejected.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := models.ParseDialect(dialect)
			if err != nil {
				return err
			}

			var query string
			if len(args) == 0 || args[0] == "-" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read statement: %w", err)
				}
				query = string(data)
			} else {
				query = args[0]
			}
			if strings.TrimSpace(query) == "" {
				return errors.New("no statement given")
			}

			out := cmd.OutOrStdout()
			if v := sqlcheck.Check(query, d); v != nil {
				fmt.Fprintf(out, "unsafe (%s): rule %q matched %q\n", d, v.Rule, strings.TrimSpace(v.Match))
				return ErrUnsafe
			}
			fmt.Fprintf(out, "safe (%s)\n", d)
			return nil
		},
	}
	cmd.Flags().StringVar(&dialect, "dialect", string(models.DialectPostgres), "Dialect rules to apply: oracle, postgres, mysql, mssql")
	return cmd
}

func newDialectsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List supported database dialects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeDialects(cmd.OutOrStdout(), datasource.Registered())
		},
	}
}

func newMCPCommand(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve check_sql, discover_schema and ask_database over MCP stdio",
		Long: `Serve check_sql, discover_schema and ask_database over MCP stdio.
The connection section of the config is the default target; tool arguments
override it per call. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, cleanup, err := o.setup()
			if err != nil {
				return err
			}
			defer cleanup()

			defaults, err := o.conn.defaults(cmd, app.Config.Connection)
			if err != nil {
				return err
			}
			ask, askErr := app.AskService()
			if askErr != nil {
				app.Logger.Info("ask_database will report an error", zap.Error(askErr))
			}

			server := mcp.NewServer("ekaya-askdb", o.version, app.Logger)
			tools.RegisterAll(server.MCP(), o.version, &tools.Deps{
				Defaults:  defaults,
				Handles:   app.Registry,
				Discovery: app.Discovery,
				Ask:       ask,
				Dialects:  datasource.Registered,
				Logger:    app.Logger.Named("tools"),
			})
			return server.ServeStdio(cmd.Context(), os.Stdin, cmd.OutOrStdout())
		},
	}
	addConnectionFlags(cmd, &o.conn)
	return cmd
}

// defaults is like connection but tolerates an incomplete target, since MCP
// callers can supply the rest per call.
func (f *connFlags) defaults(cmd *cobra.Command, base config.ConnectionConfig) (models.ConnectionConfig, error) {
	base = f.overlay(cmd, base)
	cfg := models.ConnectionConfig{
		Username:         base.Username,
		Password:         base.Password,
		ConnectionString: base.ConnectionString,
		Host:             base.Host,
		Port:             base.Port,
		Database:         base.Database,
		SSL:              base.SSL,
		SchemaHint:       base.SchemaHint,
	}
	if base.Dialect != "" {
		d, err := models.ParseDialect(base.Dialect)
		if err != nil {
			return cfg, err
		}
		cfg.Dialect = d
	}
	return cfg, nil
}

func checkFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q (want %s)", format, strings.Join(allowed, " or "))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
