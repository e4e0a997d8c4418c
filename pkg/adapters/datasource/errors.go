package datasource

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// ErrorTable maps one dialect's driver codes onto the error taxonomy.
// Codes missing from both maps fall through to the Unknown kinds.
type ErrorTable struct {
	Dialect models.Dialect

	// Extract pulls the driver-native code out of err, if it carries one.
	Extract func(err error) (code string, ok bool)

	Connection map[string]apperrors.ConnectionErrorKind
	Query      map[string]apperrors.QueryErrorKind
}

// ConnectionError classifies a failed connect. secrets are scrubbed from the message.
func (t *ErrorTable) ConnectionError(err error, secrets ...string) *apperrors.ConnectionError {
	if err == nil {
		return nil
	}
	if connErr, ok := apperrors.AsConnectionError(err); ok {
		return connErr
	}

	code, _ := t.extract(err)
	kind := apperrors.ConnUnknown
	if k, ok := t.connectionKind(code); ok {
		kind = k
	} else if k, ok := classifyNetworkError(err); ok {
		kind = k
	}

	return &apperrors.ConnectionError{
		Kind:    kind,
		Dialect: t.dialect(),
		Code:    code,
		Message: logging.SanitizeErrorWithSecrets(err, secrets...),
		Cause:   err,
	}
}

// QueryError classifies a failed statement.
func (t *ErrorTable) QueryError(err error, query string) *apperrors.QueryError {
	if err == nil {
		return nil
	}
	if queryErr, ok := apperrors.AsQueryError(err); ok {
		return queryErr
	}

	code, _ := t.extract(err)
	kind := apperrors.QueryUnknown
	if k, ok := t.queryKind(code); ok {
		kind = k
	} else if errors.Is(err, context.DeadlineExceeded) {
		kind = apperrors.QueryTimeout
	}

	return &apperrors.QueryError{
		Kind:    kind,
		Dialect: t.dialect(),
		Code:    code,
		Message: logging.SanitizeError(err),
		SQL:     logging.SanitizeQuery(query),
		Cause:   err,
	}
}

func (t *ErrorTable) connectionKind(code string) (apperrors.ConnectionErrorKind, bool) {
	if t == nil || code == "" {
		return "", false
	}
	k, ok := t.Connection[code]
	return k, ok
}

func (t *ErrorTable) queryKind(code string) (apperrors.QueryErrorKind, bool) {
	if t == nil || code == "" {
		return "", false
	}
	k, ok := t.Query[code]
	return k, ok
}

func (t *ErrorTable) dialect() string {
	if t == nil {
		return ""
	}
	return string(t.Dialect)
}

func (t *ErrorTable) extract(err error) (string, bool) {
	if t == nil || t.Extract == nil {
		return "", false
	}
	return t.Extract(err)
}

// classifyNetworkError recognizes transport failures that carry no server code.
func classifyNetworkError(err error) (apperrors.ConnectionErrorKind, bool) {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.ConnTimeout, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.ConnTimeout, true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return apperrors.ConnHostUnreachable, true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return apperrors.ConnHostUnreachable, true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return apperrors.ConnHostUnreachable, true
	}

	// Several drivers flatten the net error into their own message.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "i/o timeout"), strings.Contains(msg, "timed out"), strings.Contains(msg, "timeout expired"):
		return apperrors.ConnTimeout, true
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "no such host"),
		strings.Contains(msg, "network is unreachable"), strings.Contains(msg, "no route to host"):
		return apperrors.ConnHostUnreachable, true
	}
	return "", false
}
