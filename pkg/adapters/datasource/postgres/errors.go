package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// sqlState extracts the SQLSTATE from a server error.
func sqlState(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, true
	}
	return "", false
}

var errorTable = &datasource.ErrorTable{
	Dialect: models.DialectPostgres,
	Extract: sqlState,
	Connection: map[string]apperrors.ConnectionErrorKind{
		"28P01": apperrors.ConnAuthFailure,      // invalid_password
		"28000": apperrors.ConnPermissionDenied, // invalid_authorization_specification (pg_hba)
		"3D000": apperrors.ConnDatabaseNotFound, // invalid_catalog_name
		"42501": apperrors.ConnPermissionDenied,
		"08001": apperrors.ConnHostUnreachable,
		"08006": apperrors.ConnHostUnreachable,
		"57P03": apperrors.ConnHostUnreachable, // cannot_connect_now
		"53300": apperrors.ConnHostUnreachable, // too_many_connections
	},
	Query: map[string]apperrors.QueryErrorKind{
		"42601": apperrors.QuerySyntax,
		"42000": apperrors.QuerySyntax,
		"42P01": apperrors.QueryUnknownObject, // undefined_table
		"42703": apperrors.QueryUnknownObject, // undefined_column
		"42883": apperrors.QueryUnknownObject, // undefined_function
		"3F000": apperrors.QueryUnknownObject, // invalid_schema_name
		"42501": apperrors.QueryPermissionDenied,
		"23000": apperrors.QueryConstraintViolation,
		"23502": apperrors.QueryConstraintViolation,
		"23503": apperrors.QueryConstraintViolation,
		"23505": apperrors.QueryConstraintViolation,
		"23514": apperrors.QueryConstraintViolation,
		"23P01": apperrors.QueryConstraintViolation,
		"57014": apperrors.QueryTimeout, // query_canceled
	},
}
