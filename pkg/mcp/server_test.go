package mcp

import (
	"context"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewServer(t *testing.T) {
	s := NewServer("test-server", "1.0.0", zap.NewNop())

	require.NotNil(t, s)
	require.NotNil(t, s.MCP())
	assert.Same(t, s.mcp, s.MCP())
}

func TestServer_ToolCallsAreAudited(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := NewServer("test-server", "1.0.0", zap.New(core))

	handlerCalled := false
	s.RegisterTool(mcp.NewTool("echo", mcp.WithString("sql")), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		handlerCalled = true
		return mcp.NewToolResultText(`{"safe":true}`), nil
	})

	s.MCP().HandleMessage(context.Background(), []byte(
		`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"echo","arguments":{"sql":"SELECT * FROM t WHERE name = 'bob'","password":"hunter2"}}}`,
	))

	require.True(t, handlerCalled)
	entries := logs.FilterMessage("MCP tool call").All()
	require.Len(t, entries, 1)

	fields := entries[0].ContextMap()
	assert.Equal(t, "echo", fields["tool"])
	assert.Equal(t, true, fields["successful"])

	params, ok := fields["params"].(map[string]any)
	require.True(t, ok, "params logged as a map, got %T", fields["params"])
	assert.Equal(t, "SELECT * FROM t WHERE name = '***'", params["sql"])
	assert.NotContains(t, params["password"], "hunter2")
}
