package apperrors

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
	ErrUnknownDialect = errors.New("unknown dialect")
	ErrRegistryClosed = errors.New("connection registry is closed")
	ErrHandleClosed   = errors.New("connection handle is closed")
	ErrNoTranslator   = errors.New("no translator configured")
)
