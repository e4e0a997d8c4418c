package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// RegisterDiscoverSchemaTool adds discover_schema, which connects to the
// target and returns its SchemaGraph.
func RegisterDiscoverSchemaTool(s *server.MCPServer, deps *Deps) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription(
			"Discover the schema of a database: schemas, tables, columns, primary keys, foreign keys " +
				"and a few sample rows per table. Discovery is budgeted (10 schemas, 30 tables per schema, " +
				"or 100 tables when schema_hint names one schema) and degrades instead of failing.",
		),
	}, connectionOptions()...)
	opts = append(opts,
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
	tool := mcp.NewTool("discover_schema", opts...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cfg, err := connectionFromRequest(req, deps.Defaults)
		if err != nil {
			return NewErrorResult(CodeInvalidParams, err.Error()), nil
		}

		start := time.Now()
		var graph *models.SchemaGraph
		err = withHandle(ctx, deps, &cfg, func(h *datasource.Handle) error {
			graph = deps.Discovery.Discover(ctx, h, cfg.SchemaHint)
			return nil
		})
		if err != nil {
			return errorResultFor(err), nil
		}

		deps.log().Info("Schema discovered",
			zap.String("dialect", string(cfg.Dialect)),
			zap.Int("tables", len(graph.Tables)),
			zap.Duration("elapsed", time.Since(start)))
		return jsonResult(graph)
	})
}
