package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
)

type healthResult struct {
	Status       string                   `json:"status"`
	Version      string                   `json:"version"`
	Dialects     []datasource.DialectInfo `json:"dialects"`
	AskAvailable bool                     `json:"ask_available"`
}

// RegisterHealthTool adds a health check tool reporting the version, the
// compiled-in dialects and whether ask_database has a translator.
func RegisterHealthTool(s *server.MCPServer, version string, deps *Deps) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health status, version and supported database dialects"),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result := healthResult{Status: "ok", Version: version, Dialects: []datasource.DialectInfo{}}
		if deps != nil {
			if deps.Dialects != nil {
				result.Dialects = deps.Dialects()
			}
			result.AskAvailable = deps.Ask != nil
		}
		return jsonResult(result)
	})
}

// RegisterAll adds every tool this server exposes.
func RegisterAll(s *server.MCPServer, version string, deps *Deps) {
	RegisterHealthTool(s, version, deps)
	RegisterCheckSQLTool(s)
	RegisterDiscoverSchemaTool(s, deps)
	RegisterAskDatabaseTool(s, deps)
}
