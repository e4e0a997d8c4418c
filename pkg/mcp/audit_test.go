package mcp

import (
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func textResult(isError bool, text string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		IsError: isError,
		Content: []mcplib.Content{mcplib.TextContent{Type: "text", Text: text}},
	}
}

func TestClassifyToolCallSecurity_NilResult(t *testing.T) {
	event := &AuditEvent{SecurityLevel: SecurityNormal}
	classifyToolCallSecurity(event, nil)

	if event.SecurityLevel != SecurityNormal {
		t.Errorf("expected security level %q, got %q", SecurityNormal, event.SecurityLevel)
	}
}

func TestClassifyToolCallSecurity_RejectedStatement(t *testing.T) {
	result := textResult(false, `{"request_id":"r","statements":[{"sql":"SELECT 1","status":"succeeded"},{"sql":"DROP TABLE t","status":"rejected"}]}`)
	event := &AuditEvent{SecurityLevel: SecurityNormal, Result: summarizeResult(result)}
	classifyToolCallSecurity(event, result)

	if event.SecurityLevel != SecurityWarning {
		t.Errorf("expected security level %q, got %q", SecurityWarning, event.SecurityLevel)
	}
	if len(event.SecurityFlags) != 1 || event.SecurityFlags[0] != "unsafe_statement_generated" {
		t.Errorf("expected security flags [unsafe_statement_generated], got %v", event.SecurityFlags)
	}
	if event.Result["statement_count"] != 2 {
		t.Errorf("expected statement_count 2, got %v", event.Result["statement_count"])
	}
}

func TestClassifyToolCallSecurity_AuthFailure(t *testing.T) {
	result := textResult(true, `{"error":true,"code":"connection_failed","details":{"kind":"AuthFailure"}}`)
	event := &AuditEvent{SecurityLevel: SecurityNormal}
	classifyToolCallSecurity(event, result)

	if event.SecurityLevel != SecurityWarning {
		t.Errorf("expected security level %q, got %q", SecurityWarning, event.SecurityLevel)
	}
	if len(event.SecurityFlags) != 1 || event.SecurityFlags[0] != "auth_failure" {
		t.Errorf("expected security flags [auth_failure], got %v", event.SecurityFlags)
	}
}

func TestClassifyErrorSecurity(t *testing.T) {
	tests := []struct {
		msg       string
		wantLevel string
		wantFlag  string
	}{
		{"SQL injection attempt detected in parameter 'schema_hint'", SecurityCritical, "sql_injection_attempt"},
		{"authentication required", SecurityWarning, "auth_failure"},
		{"rate limit exceeded", SecurityWarning, "rate_limit"},
		{"failed to connect to database", SecurityNormal, ""},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			event := &AuditEvent{SecurityLevel: SecurityNormal}
			classifyErrorSecurity(event, tt.msg)

			if event.SecurityLevel != tt.wantLevel {
				t.Errorf("expected security level %q, got %q", tt.wantLevel, event.SecurityLevel)
			}
			if tt.wantFlag == "" && len(event.SecurityFlags) != 0 {
				t.Errorf("expected no flags, got %v", event.SecurityFlags)
			}
			if tt.wantFlag != "" && (len(event.SecurityFlags) != 1 || event.SecurityFlags[0] != tt.wantFlag) {
				t.Errorf("expected flags [%s], got %v", tt.wantFlag, event.SecurityFlags)
			}
		})
	}
}

func TestSanitizeParams(t *testing.T) {
	params := sanitizeParams(map[string]any{
		"sql":      "SELECT * FROM users WHERE email = 'a@b.com' AND name = 'O''Brien'",
		"password": "hunter2",
		"port":     5432,
		"prompt":   "who ordered 'widgets'?",
	})

	if got := params["sql"]; got != "SELECT * FROM users WHERE email = '***' AND name = '***'" {
		t.Errorf("sql literals not redacted: %v", got)
	}
	if got, _ := params["password"].(string); !strings.HasPrefix(got, "sha256:") || strings.Contains(got, "hunter2") {
		t.Errorf("password not hashed: %v", params["password"])
	}
	if params["port"] != 5432 {
		t.Errorf("expected port untouched, got %v", params["port"])
	}
	if params["prompt"] != "who ordered 'widgets'?" {
		t.Errorf("non-SQL strings should keep quotes, got %v", params["prompt"])
	}
}

func TestSanitizeParams_Empty(t *testing.T) {
	if got := sanitizeParams(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if got := sanitizeParams("not a map"); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
}

func TestSanitizeStringParam_Truncates(t *testing.T) {
	long := strings.Repeat("x", maxSQLSize+10)
	got := sanitizeStringParam("sql", long)

	if !strings.HasSuffix(got, "...[truncated]") {
		t.Errorf("expected truncation marker")
	}
	if len(got) != maxSQLSize+len("...[truncated]") {
		t.Errorf("unexpected length %d", len(got))
	}
}
