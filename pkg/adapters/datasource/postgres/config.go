package postgres

import (
	"fmt"
	"net/url"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// DefaultDatabase is used when the request names no database.
const DefaultDatabase = "postgres"

// sslModes returns the sslmode values to try, in order.
func sslModes(requireSSL bool) []string {
	if requireSSL {
		return []string{"require", "prefer"}
	}
	return []string{"prefer", "disable"}
}

// buildConnectionString builds a PostgreSQL URL with proper escaping.
// All user-provided fields are URL-escaped so passwords containing @, /, #
// or ? survive URL parsing.
func buildConnectionString(cfg *models.ConnectionConfig, ep datasource.Endpoint, sslMode string) string {
	database := ep.Database
	if database == "" {
		database = DefaultDatabase
	}
	return fmt.Sprintf(
		"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.Username),
		url.QueryEscape(cfg.Password),
		ep.Host,
		ep.Port,
		url.QueryEscape(database),
		sslMode,
	)
}
