package oracle

import (
	"errors"
	"strconv"

	"github.com/sijms/go-ora/v2/network"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// oraCode extracts the ORA-n number.
func oraCode(err error) (string, bool) {
	var oraErr *network.OracleError
	if errors.As(err, &oraErr) {
		return strconv.Itoa(oraErr.ErrCode), true
	}
	return "", false
}

var errorTable = &datasource.ErrorTable{
	Dialect: models.DialectOracle,
	Extract: oraCode,
	Connection: map[string]apperrors.ConnectionErrorKind{
		"1017":  apperrors.ConnAuthFailure, // invalid username/password
		"28000": apperrors.ConnAuthFailure, // account locked
		"28001": apperrors.ConnAuthFailure, // password expired
		"12514": apperrors.ConnDatabaseNotFound, // listener does not know service
		"12505": apperrors.ConnDatabaseNotFound, // listener does not know SID
		"12541": apperrors.ConnHostUnreachable,  // no listener
		"12543": apperrors.ConnHostUnreachable,
		"12545": apperrors.ConnHostUnreachable,
		"12154": apperrors.ConnHostUnreachable, // could not resolve identifier
		"12170": apperrors.ConnTimeout,
		"1031":  apperrors.ConnPermissionDenied,
		"1045":  apperrors.ConnPermissionDenied, // lacks CREATE SESSION
	},
	Query: map[string]apperrors.QueryErrorKind{
		"900":  apperrors.QuerySyntax,
		"907":  apperrors.QuerySyntax,
		"911":  apperrors.QuerySyntax, // invalid character, usually a stray semicolon
		"923":  apperrors.QuerySyntax,
		"933":  apperrors.QuerySyntax,
		"936":  apperrors.QuerySyntax,
		"942":  apperrors.QueryUnknownObject,
		"904":  apperrors.QueryUnknownObject,
		"4043": apperrors.QueryUnknownObject,
		"1031": apperrors.QueryPermissionDenied,
		"1":    apperrors.QueryConstraintViolation,
		"1400": apperrors.QueryConstraintViolation,
		"2291": apperrors.QueryConstraintViolation,
		"2292": apperrors.QueryConstraintViolation,
		"1013": apperrors.QueryTimeout, // user requested cancel
	},
}
