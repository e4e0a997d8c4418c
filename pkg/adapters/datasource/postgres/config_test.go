package postgres

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

func TestSSLModes(t *testing.T) {
	assert.Equal(t, []string{"require", "prefer"}, sslModes(true))
	assert.Equal(t, []string{"prefer", "disable"}, sslModes(false))
}

func TestBuildConnectionString_EscapesCredentials(t *testing.T) {
	cfg := &models.ConnectionConfig{
		Dialect:  models.DialectPostgres,
		Username: "report_user",
		Password: "p@ss/w#rd?",
		Host:     "db.internal",
		Database: "sales",
	}
	ep := datasource.ResolveEndpoint(cfg, nil)

	connStr := buildConnectionString(cfg, ep, "require")
	u, err := url.Parse(connStr)
	require.NoError(t, err)

	password, _ := u.User.Password()
	assert.Equal(t, "p@ss/w#rd?", password)
	assert.Equal(t, "report_user", u.User.Username())
	assert.Equal(t, "db.internal:5432", u.Host)
	assert.Equal(t, "/sales", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}

func TestBuildConnectionString_DefaultDatabase(t *testing.T) {
	cfg := &models.ConnectionConfig{Dialect: models.DialectPostgres, Username: "u", Host: "h"}
	connStr := buildConnectionString(cfg, datasource.ResolveEndpoint(cfg, nil), "disable")
	assert.Contains(t, connStr, "/postgres?sslmode=disable")
}
