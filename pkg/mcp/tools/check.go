package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	sqlcheck "github.com/ekaya-inc/ekaya-askdb/pkg/sql"
)

type checkSQLResult struct {
	Safe    bool   `json:"safe"`
	Dialect string `json:"dialect"`
	Rule    string `json:"rule,omitempty"`
	Match   string `json:"match,omitempty"`
}

// RegisterCheckSQLTool adds check_sql, which runs the safety deny-list over a
// statement without touching any database.
func RegisterCheckSQLTool(s *server.MCPServer) {
	tool := mcp.NewTool(
		"check_sql",
		mcp.WithDescription(
			"Check whether a SQL statement passes the safety filter used before execution. "+
				"DROP, TRUNCATE and ALTER are always rejected, as are UPDATE or DELETE without WHERE "+
				"and a few dialect-specific dangerous commands. No database connection is made.",
		),
		mcp.WithString("sql", mcp.Required(), mcp.Description("Statement to check")),
		mcp.WithString("dialect", mcp.Description("oracle, postgres, mysql or mssql (default postgres)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("sql")
		if err != nil || trimString(query) == "" {
			return NewErrorResult(CodeInvalidParams, "sql is required"), nil
		}

		dialect := models.DialectPostgres
		if v := trimString(req.GetString("dialect", "")); v != "" {
			dialect, err = models.ParseDialect(v)
			if err != nil {
				return NewErrorResult(CodeUnknownDialect, err.Error()), nil
			}
		}

		result := checkSQLResult{Safe: true, Dialect: string(dialect)}
		if v := sqlcheck.Check(query, dialect); v != nil {
			result.Safe = false
			result.Rule = v.Rule
			result.Match = trimString(v.Match)
		}
		return jsonResult(result)
	})
}
