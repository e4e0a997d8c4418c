package mcp

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Security levels attached to audit events.
const (
	SecurityNormal   = "normal"
	SecurityWarning  = "warning"
	SecurityCritical = "critical"
)

// AuditEvent is one tool call as written to the audit log.
type AuditEvent struct {
	Tool          string
	Successful    bool
	Duration      time.Duration
	Params        map[string]any
	Result        map[string]any
	ErrorMessage  string
	SecurityLevel string
	SecurityFlags []string
}

// AuditLogger writes one structured log line per MCP tool call.
type AuditLogger struct {
	logger *zap.Logger

	// startTimes tracks when tool calls begin, keyed by request ID.
	startTimes sync.Map
}

// NewAuditLogger creates an AuditLogger that records MCP events.
func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger.Named("mcp-audit"),
	}
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
func (a *AuditLogger) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(a.beforeCallTool)
	hooks.AddAfterCallTool(a.afterCallTool)
	hooks.AddOnError(a.onError)
	return hooks
}

func (a *AuditLogger) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	a.startTimes.Store(id, time.Now())
}

func (a *AuditLogger) afterCallTool(_ context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	startTime, _ := a.loadAndDeleteStart(id)

	event := newAuditEvent(req)
	event.Successful = result == nil || !result.IsError
	event.Duration = time.Since(startTime)
	event.Result = summarizeResult(result)
	classifyToolCallSecurity(event, result)

	a.record(event)
}

func (a *AuditLogger) onError(_ context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}
	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}

	startTime, _ := a.loadAndDeleteStart(id)

	event := newAuditEvent(req)
	event.Duration = time.Since(startTime)
	event.ErrorMessage = err.Error()
	classifyErrorSecurity(event, event.ErrorMessage)

	a.record(event)
}

func (a *AuditLogger) loadAndDeleteStart(id any) (time.Time, bool) {
	if v, ok := a.startTimes.LoadAndDelete(id); ok {
		return v.(time.Time), true
	}
	return time.Now(), false
}

func newAuditEvent(req *mcplib.CallToolRequest) *AuditEvent {
	return &AuditEvent{
		Tool:          req.Params.Name,
		Params:        sanitizeParams(req.Params.Arguments),
		SecurityLevel: SecurityNormal,
	}
}

// record writes the event at a level matching its security classification.
func (a *AuditLogger) record(event *AuditEvent) {
	fields := []zap.Field{
		zap.String("tool", event.Tool),
		zap.Bool("successful", event.Successful),
		zap.Duration("duration", event.Duration),
		zap.String("security_level", event.SecurityLevel),
	}
	if len(event.Params) > 0 {
		fields = append(fields, zap.Any("params", event.Params))
	}
	if len(event.Result) > 0 {
		fields = append(fields, zap.Any("result", event.Result))
	}
	if event.ErrorMessage != "" {
		fields = append(fields, zap.String("error", event.ErrorMessage))
	}
	if len(event.SecurityFlags) > 0 {
		fields = append(fields, zap.Strings("security_flags", event.SecurityFlags))
	}

	level := zapcore.InfoLevel
	switch event.SecurityLevel {
	case SecurityCritical:
		level = zapcore.ErrorLevel
	case SecurityWarning:
		level = zapcore.WarnLevel
	}
	if ce := a.logger.Check(level, "MCP tool call"); ce != nil {
		ce.Write(fields...)
	}
}

// maxSQLSize is the maximum size of SQL strings kept in audit logs.
const maxSQLSize = 10240 // 10KB

// sqlStringLiteralPattern matches SQL string literals, including '' escapes.
var sqlStringLiteralPattern = regexp.MustCompile(`'(?:[^']*(?:'')?)*[^']*'`)

// sensitiveKeyPattern matches argument names whose values must never be logged.
var sensitiveKeyPattern = regexp.MustCompile(`(?i)(password|passwd|secret|token|api_?key|credential)`)

// sanitizeParams sanitizes request parameters before they are logged.
// Applies: SQL truncation, string literal redaction, sensitive value hashing.
func sanitizeParams(args any) map[string]any {
	params, ok := args.(map[string]any)
	if !ok || len(params) == 0 {
		return nil
	}

	sanitized := make(map[string]any, len(params))
	for k, v := range params {
		sanitized[k] = sanitizeValue(k, v)
	}
	return sanitized
}

func sanitizeValue(key string, value any) any {
	if sensitiveKeyPattern.MatchString(key) {
		return hashSensitiveValue(value)
	}

	switch val := value.(type) {
	case string:
		return sanitizeStringParam(key, val)
	case map[string]any:
		return sanitizeParams(val)
	default:
		return value
	}
}

func sanitizeStringParam(key string, val string) string {
	if len(val) > maxSQLSize {
		val = val[:maxSQLSize] + "...[truncated]"
	}
	if isSQLParam(key) {
		val = sqlStringLiteralPattern.ReplaceAllString(val, "'***'")
	}
	return val
}

// isSQLParam returns true if a parameter key likely contains SQL.
func isSQLParam(key string) bool {
	lower := strings.ToLower(key)
	return lower == "sql" || lower == "query" || strings.HasSuffix(lower, "_sql") || strings.HasSuffix(lower, "_query")
}

// hashSensitiveValue returns a SHA-256 prefix so entries can be correlated
// without storing the value.
func hashSensitiveValue(value any) string {
	var str string
	switch v := value.(type) {
	case string:
		str = v
	default:
		str = fmt.Sprintf("%v", v)
	}
	hash := sha256.Sum256([]byte(str))
	return "sha256:" + hex.EncodeToString(hash[:8])
}

// summarizeResult creates a compact summary of the tool result.
func summarizeResult(result *mcplib.CallToolResult) map[string]any {
	if result == nil {
		return nil
	}

	summary := map[string]any{
		"is_error": result.IsError,
	}
	for _, c := range result.Content {
		tc, ok := c.(mcplib.TextContent)
		if !ok {
			continue
		}
		extractCounts(tc.Text, summary)
		text := tc.Text
		if len(text) > 200 {
			text = text[:200] + "...[truncated]"
		}
		summary["preview"] = text
		break
	}
	return summary
}

// extractCounts copies statement and table counts out of a JSON tool result.
func extractCounts(text string, summary map[string]any) {
	var partial struct {
		Statements []struct {
			Status string `json:"status"`
		} `json:"statements"`
		TableCount *int  `json:"table_count"`
		Safe       *bool `json:"safe"`
	}
	if err := json.Unmarshal([]byte(text), &partial); err != nil {
		return
	}
	if len(partial.Statements) > 0 {
		summary["statement_count"] = len(partial.Statements)
		rejected := 0
		for _, s := range partial.Statements {
			if s.Status == "rejected" {
				rejected++
			}
		}
		summary["rejected_count"] = rejected
	}
	if partial.TableCount != nil {
		summary["table_count"] = *partial.TableCount
	}
	if partial.Safe != nil {
		summary["safe"] = *partial.Safe
	}
}

// classifyToolCallSecurity flags results that carry a rejected or unsafe statement.
func classifyToolCallSecurity(event *AuditEvent, result *mcplib.CallToolResult) {
	if event.Result != nil {
		if n, ok := event.Result["rejected_count"].(int); ok && n > 0 {
			event.SecurityLevel = SecurityWarning
			event.SecurityFlags = append(event.SecurityFlags, "unsafe_statement_generated")
		}
		if safe, ok := event.Result["safe"].(bool); ok && !safe {
			event.SecurityFlags = append(event.SecurityFlags, "unsafe_statement_checked")
		}
	}
	if result == nil || !result.IsError {
		return
	}

	for _, c := range result.Content {
		tc, ok := c.(mcplib.TextContent)
		if !ok {
			continue
		}
		text := strings.ToLower(tc.Text)

		if strings.Contains(text, "injection") {
			event.SecurityLevel = SecurityCritical
			event.SecurityFlags = append(event.SecurityFlags, "sql_injection_attempt")
			return
		}
		if strings.Contains(text, "authfailure") || strings.Contains(text, "permissiondenied") {
			event.SecurityLevel = SecurityWarning
			event.SecurityFlags = append(event.SecurityFlags, "auth_failure")
			return
		}
	}
}

// classifyErrorSecurity upgrades the event's classification from an error message.
func classifyErrorSecurity(event *AuditEvent, errMsg string) {
	lower := strings.ToLower(errMsg)

	switch {
	case strings.Contains(lower, "injection"):
		event.SecurityLevel = SecurityCritical
		event.SecurityFlags = append(event.SecurityFlags, "sql_injection_attempt")
	case strings.Contains(lower, "authentication") || strings.Contains(lower, "unauthorized"):
		event.SecurityLevel = SecurityWarning
		event.SecurityFlags = append(event.SecurityFlags, "auth_failure")
	case strings.Contains(lower, "rate limit"):
		event.SecurityLevel = SecurityWarning
		event.SecurityFlags = append(event.SecurityFlags, "rate_limit")
	}
}
