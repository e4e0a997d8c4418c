package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	"github.com/ekaya-inc/ekaya-askdb/pkg/services"
)

// Deps holds what the database tools need. Defaults is the configured
// target; per-call arguments override its fields. Ask may be nil when no
// llm provider is configured.
type Deps struct {
	Defaults  models.ConnectionConfig
	Handles   services.HandleSource
	Discovery services.SchemaDiscoveryService
	Ask       services.AskService
	Dialects  func() []datasource.DialectInfo
	Logger    *zap.Logger
}

// connectionOptions are the tool parameters describing a target database.
func connectionOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("dialect", mcp.Description("Database engine: oracle, postgres, mysql or mssql. Defaults to the configured target.")),
		mcp.WithString("host", mcp.Description("Database host")),
		mcp.WithNumber("port", mcp.Description("Database port (dialect default when omitted)")),
		mcp.WithString("database", mcp.Description("Database, catalog or service name")),
		mcp.WithString("username", mcp.Description("Database user")),
		mcp.WithString("password", mcp.Description("Database password. Prefer the ASKDB_DB_PASSWORD environment variable.")),
		mcp.WithString("connection_string", mcp.Description("Oracle easy-connect string host[:port]/service; replaces host, port and database")),
		mcp.WithString("schema_hint", mcp.Description("Restrict discovery to this schema (matched case-insensitively)")),
	}
}

// connectionFromRequest overlays the call's arguments on the defaults.
func connectionFromRequest(req mcp.CallToolRequest, defaults models.ConnectionConfig) (models.ConnectionConfig, error) {
	cfg := defaults

	if v := trimString(req.GetString("dialect", "")); v != "" {
		d, err := models.ParseDialect(v)
		if err != nil {
			return cfg, err
		}
		cfg.Dialect = d
	}
	if v := trimString(req.GetString("connection_string", "")); v != "" {
		cfg.ConnectionString = v
		cfg.Host, cfg.Port, cfg.Database = "", 0, ""
	}
	if v := trimString(req.GetString("host", "")); v != "" {
		cfg.Host = v
	}
	if v := req.GetInt("port", 0); v > 0 {
		cfg.Port = v
	}
	if v := trimString(req.GetString("database", "")); v != "" {
		cfg.Database = v
	}
	if v := trimString(req.GetString("username", "")); v != "" {
		cfg.Username = v
	}
	if v := req.GetString("password", ""); v != "" {
		cfg.Password = v
	}
	if v, ok := getOptionalString(req, "schema_hint"); ok {
		cfg.SchemaHint = v
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// getOptionalString reports whether key was supplied, even as an empty string.
func getOptionalString(req mcp.CallToolRequest, key string) (string, bool) {
	v, ok := req.GetArguments()[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	return trimString(s), true
}

// trimString removes leading and trailing whitespace from a string.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

// jsonResult marshals v into a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// withHandle connects, runs fn and always releases the handle.
func withHandle(ctx context.Context, deps *Deps, cfg *models.ConnectionConfig, fn func(h *datasource.Handle) error) error {
	h, err := deps.Handles.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := deps.Handles.Close(context.Background(), h); cerr != nil {
			deps.log().Warn("Failed to release connection", zap.String("handle", h.LogIdentity()), zap.Error(cerr))
		}
	}()
	return fn(h)
}

func (d *Deps) log() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}
