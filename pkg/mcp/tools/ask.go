package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// askDatabaseResult omits the schema graph; discover_schema returns it.
type askDatabaseResult struct {
	RequestID   string                   `json:"request_id"`
	Statements  []models.StatementResult `json:"statements"`
	Summary     string                   `json:"summary"`
	Suggestions []string                 `json:"suggestions"`
	TableCount  int                      `json:"table_count"`
}

// RegisterAskDatabaseTool adds ask_database, which answers a natural-language
// question by generating, checking and running SQL.
func RegisterAskDatabaseTool(s *server.MCPServer, deps *Deps) {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription(
			"Answer a natural-language question about a database. The schema is discovered, SQL is generated " +
				"for the database's dialect, each statement passes the safety filter before it runs, and the " +
				"results come back with a plain-language summary and follow-up suggestions. " +
				"Unsafe statements are reported as rejected and never executed.",
		),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("The question to answer")),
	}, connectionOptions()...)
	opts = append(opts,
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)
	tool := mcp.NewTool("ask_database", opts...)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Ask == nil {
			return NewErrorResult(CodeNoTranslator, "no llm provider is configured; set llm.provider and its API key"), nil
		}
		prompt, err := req.RequireString("prompt")
		if err != nil || trimString(prompt) == "" {
			return NewErrorResult(CodeInvalidParams, "prompt is required"), nil
		}
		cfg, err := connectionFromRequest(req, deps.Defaults)
		if err != nil {
			return NewErrorResult(CodeInvalidParams, err.Error()), nil
		}

		res, err := deps.Ask.Ask(ctx, &models.AskRequest{Prompt: prompt, Connection: cfg})
		if err != nil {
			return errorResultFor(err), nil
		}

		out := askDatabaseResult{
			RequestID:   res.RequestID,
			Statements:  res.Statements,
			Summary:     res.Summary,
			Suggestions: res.Suggestions,
		}
		if res.Schema != nil {
			out.TableCount = res.Schema.TableCount
		}
		return jsonResult(out)
	})
}
