package apperrors

import (
	"errors"
	"fmt"
)

// ConnectionErrorKind classifies why a connection could not be established.
type ConnectionErrorKind string

const (
	ConnAuthFailure      ConnectionErrorKind = "AuthFailure"
	ConnHostUnreachable  ConnectionErrorKind = "HostUnreachable"
	ConnTimeout          ConnectionErrorKind = "Timeout"
	ConnDatabaseNotFound ConnectionErrorKind = "DatabaseNotFound"
	ConnPermissionDenied ConnectionErrorKind = "PermissionDenied"
	ConnUnknown          ConnectionErrorKind = "Unknown"
)

// QueryErrorKind classifies why a statement failed.
type QueryErrorKind string

const (
	QuerySyntax              QueryErrorKind = "Syntax"
	QueryUnknownObject       QueryErrorKind = "UnknownObject"
	QueryTimeout             QueryErrorKind = "Timeout"
	QueryPermissionDenied    QueryErrorKind = "PermissionDenied"
	QueryConstraintViolation QueryErrorKind = "ConstraintViolation"
	QueryUnsafe              QueryErrorKind = "Unsafe"
	QueryUnknown             QueryErrorKind = "Unknown"
)

// ConnectionError ends the request that produced it.
type ConnectionError struct {
	Kind    ConnectionErrorKind
	Dialect string
	Code    string // driver-native code, empty when none was reported
	Message string // sanitized driver message
	Cause   error
}

func (e *ConnectionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s connection failed (%s, code %s): %s", e.Dialect, e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s connection failed (%s): %s", e.Dialect, e.Kind, e.Message)
}

func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// QueryError is reported per statement; callers decide whether to continue.
type QueryError struct {
	Kind    QueryErrorKind
	Dialect string
	Code    string
	Message string
	SQL     string // truncated statement text for diagnostics
	Cause   error
}

func (e *QueryError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s query failed (%s, code %s): %s", e.Dialect, e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s query failed (%s): %s", e.Dialect, e.Kind, e.Message)
}

func (e *QueryError) Unwrap() error {
	return e.Cause
}

// DiscoveryWarning is a non-fatal discovery failure. It is logged and absorbed.
type DiscoveryWarning struct {
	Stage  string
	Schema string
	Table  string
	Cause  error
}

func (w *DiscoveryWarning) Error() string {
	where := w.Stage
	if w.Schema != "" {
		where += " " + w.Schema
		if w.Table != "" {
			where += "." + w.Table
		}
	}
	if w.Cause == nil {
		return "discovery warning: " + where
	}
	return fmt.Sprintf("discovery warning: %s: %v", where, w.Cause)
}

func (w *DiscoveryWarning) Unwrap() error {
	return w.Cause
}

// AsConnectionError extracts a *ConnectionError from err's chain.
func AsConnectionError(err error) (*ConnectionError, bool) {
	var connErr *ConnectionError
	if errors.As(err, &connErr) {
		return connErr, true
	}
	return nil, false
}

// AsQueryError extracts a *QueryError from err's chain.
func AsQueryError(err error) (*QueryError, bool) {
	var queryErr *QueryError
	if errors.As(err, &queryErr) {
		return queryErr, true
	}
	return nil, false
}

// IsQueryKind reports whether err carries a QueryError of the given kind.
func IsQueryKind(err error, kind QueryErrorKind) bool {
	queryErr, ok := AsQueryError(err)
	return ok && queryErr.Kind == kind
}

// IsConnectionKind reports whether err carries a ConnectionError of the given kind.
func IsConnectionKind(err error, kind ConnectionErrorKind) bool {
	connErr, ok := AsConnectionError(err)
	return ok && connErr.Kind == kind
}
