package mssql

import (
	"errors"
	"strconv"

	mssqldb "github.com/microsoft/go-mssqldb"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// errorNumber extracts the server error number.
func errorNumber(err error) (string, bool) {
	var serverErr mssqldb.Error
	if errors.As(err, &serverErr) {
		return strconv.Itoa(int(serverErr.Number)), true
	}
	var serverErrPtr *mssqldb.Error
	if errors.As(err, &serverErrPtr) && serverErrPtr != nil {
		return strconv.Itoa(int(serverErrPtr.Number)), true
	}
	return "", false
}

var errorTable = &datasource.ErrorTable{
	Dialect: models.DialectMSSQL,
	Extract: errorNumber,
	Connection: map[string]apperrors.ConnectionErrorKind{
		"18456": apperrors.ConnAuthFailure, // login failed
		"18452": apperrors.ConnAuthFailure, // untrusted domain
		"18486": apperrors.ConnAuthFailure, // account locked out
		"4060":  apperrors.ConnDatabaseNotFound,
		"916":   apperrors.ConnPermissionDenied,
		"2":     apperrors.ConnHostUnreachable,
		"53":    apperrors.ConnHostUnreachable,
		"233":   apperrors.ConnHostUnreachable,
		"40615": apperrors.ConnHostUnreachable, // Azure firewall
		"40532": apperrors.ConnHostUnreachable,
	},
	Query: map[string]apperrors.QueryErrorKind{
		"102":   apperrors.QuerySyntax,
		"156":   apperrors.QuerySyntax,
		"170":   apperrors.QuerySyntax,
		"207":   apperrors.QueryUnknownObject, // invalid column
		"208":   apperrors.QueryUnknownObject, // invalid object
		"2812":  apperrors.QueryUnknownObject, // stored procedure
		"4104":  apperrors.QueryUnknownObject, // multi-part identifier
		"229":   apperrors.QueryPermissionDenied,
		"230":   apperrors.QueryPermissionDenied,
		"262":   apperrors.QueryPermissionDenied,
		"515":   apperrors.QueryConstraintViolation,
		"547":   apperrors.QueryConstraintViolation,
		"2601":  apperrors.QueryConstraintViolation,
		"2627":  apperrors.QueryConstraintViolation,
		"8152":  apperrors.QueryConstraintViolation,
		"1222":  apperrors.QueryTimeout, // lock request timeout
	},
}
