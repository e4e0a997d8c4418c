package tools

import (
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
)

// Error codes returned in ErrorResponse.Code.
const (
	CodeInvalidParams    = "invalid_params"
	CodeUnsafeSQL        = "unsafe_sql"
	CodeConnectionFailed = "connection_failed"
	CodeNoTranslator     = "no_translator"
	CodeTranslateFailed  = "translate_failed"
	CodeUnknownDialect   = "unknown_dialect"
)

// ErrorResponse is a structured error carried in a tool result so the
// calling model can read it and retry with different arguments.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use it for errors the caller can act on (bad arguments, unreachable
// database); protocol-level failures stay Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	return NewErrorResultWithDetails(code, message, nil)
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// errorResultFor maps a pipeline error onto a tool error result. The message
// is sanitized because driver errors can echo connection strings.
func errorResultFor(err error) *mcp.CallToolResult {
	msg := logging.SanitizeError(err)

	if connErr, ok := apperrors.AsConnectionError(err); ok {
		return NewErrorResultWithDetails(CodeConnectionFailed, msg, map[string]any{
			"kind":    string(connErr.Kind),
			"dialect": connErr.Dialect,
		})
	}
	switch {
	case errors.Is(err, apperrors.ErrInvalidConfig):
		return NewErrorResult(CodeInvalidParams, msg)
	case errors.Is(err, apperrors.ErrUnknownDialect):
		return NewErrorResult(CodeUnknownDialect, msg)
	case errors.Is(err, apperrors.ErrNoTranslator):
		return NewErrorResult(CodeNoTranslator, "no llm provider is configured; set llm.provider and its API key")
	}
	return NewErrorResult(CodeTranslateFailed, msg)
}
