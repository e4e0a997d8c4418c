package mysql

import (
	"errors"
	"strconv"

	mysqldrv "github.com/go-sql-driver/mysql"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// errorNumber extracts the server error number.
func errorNumber(err error) (string, bool) {
	var myErr *mysqldrv.MySQLError
	if errors.As(err, &myErr) {
		return strconv.Itoa(int(myErr.Number)), true
	}
	return "", false
}

var errorTable = &datasource.ErrorTable{
	Dialect: models.DialectMySQL,
	Extract: errorNumber,
	Connection: map[string]apperrors.ConnectionErrorKind{
		"1045": apperrors.ConnAuthFailure, // ER_ACCESS_DENIED_ERROR
		"1049": apperrors.ConnDatabaseNotFound,
		"1044": apperrors.ConnPermissionDenied, // ER_DBACCESS_DENIED_ERROR
		"1142": apperrors.ConnPermissionDenied,
		"1042": apperrors.ConnHostUnreachable, // ER_BAD_HOST_ERROR
		"1130": apperrors.ConnHostUnreachable, // host not allowed to connect
		"2003": apperrors.ConnHostUnreachable,
		"2005": apperrors.ConnHostUnreachable,
		"1040": apperrors.ConnHostUnreachable, // too many connections
	},
	Query: map[string]apperrors.QueryErrorKind{
		"1064": apperrors.QuerySyntax,
		"1065": apperrors.QuerySyntax, // empty query
		"1052": apperrors.QuerySyntax, // ambiguous column
		"1146": apperrors.QueryUnknownObject,
		"1054": apperrors.QueryUnknownObject,
		"1109": apperrors.QueryUnknownObject,
		"1049": apperrors.QueryUnknownObject,
		"1142": apperrors.QueryPermissionDenied,
		"1143": apperrors.QueryPermissionDenied,
		"1044": apperrors.QueryPermissionDenied,
		"1062": apperrors.QueryConstraintViolation,
		"1451": apperrors.QueryConstraintViolation,
		"1452": apperrors.QueryConstraintViolation,
		"1048": apperrors.QueryConstraintViolation,
		"1205": apperrors.QueryTimeout, // lock wait timeout
		"3024": apperrors.QueryTimeout, // max_execution_time exceeded
	},
}
