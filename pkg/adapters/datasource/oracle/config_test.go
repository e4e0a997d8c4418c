package oracle

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

func TestIsEasyConnect(t *testing.T) {
	assert.True(t, isEasyConnect("db.internal:1521/ORCLPDB1"))
	assert.False(t, isEasyConnect("db.internal"))
	assert.False(t, isEasyConnect("db.internal/ORCLPDB1"))
}

func TestResolveTarget(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.ConnectionConfig
		want target
	}{
		{
			name: "easy connect string",
			cfg:  models.ConnectionConfig{ConnectionString: "db.internal:1522/ORCLPDB1"},
			want: target{host: "db.internal", port: 1522, service: "ORCLPDB1"},
		},
		{
			name: "host and port with default service",
			cfg:  models.ConnectionConfig{Host: "db.internal", Port: 1521},
			want: target{host: "db.internal", port: 1521, service: "orcl"},
		},
		{
			name: "host with service",
			cfg:  models.ConnectionConfig{ConnectionString: "db.internal/XEPDB1"},
			want: target{host: "db.internal", port: 1521, service: "XEPDB1"},
		},
		{
			name: "tns descriptor",
			cfg:  models.ConnectionConfig{ConnectionString: " (DESCRIPTION=(ADDRESS=(PROTOCOL=TCP)(HOST=h)(PORT=1521))(CONNECT_DATA=(SID=XE)))"},
			want: target{descriptor: "(DESCRIPTION=(ADDRESS=(PROTOCOL=TCP)(HOST=h)(PORT=1521))(CONNECT_DATA=(SID=XE)))"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			cfg.Dialect = models.DialectOracle
			assert.Equal(t, tt.want, resolveTarget(&cfg, nil))
		})
	}
}

func TestConnectVariants(t *testing.T) {
	cfg := &models.ConnectionConfig{Dialect: models.DialectOracle, Username: "hr", Password: "p@ss word"}
	tgt := target{host: "db.internal", port: 1521, service: "ORCLPDB1"}

	variants := connectVariants(cfg, tgt, 5*time.Second)
	require.Len(t, variants, 4)
	assert.Equal(t, []string{"sysdba", "easy-connect", "tns-descriptor", "connect-timeout"},
		[]string{variants[0].name, variants[1].name, variants[2].name, variants[3].name})

	assert.Contains(t, variants[0].dsn, "SYSDBA")
	assert.NotContains(t, variants[1].dsn, "SYSDBA")
	assert.Contains(t, variants[1].dsn, "db.internal:1521/ORCLPDB1")
	assert.Contains(t, variants[2].dsn, url.QueryEscape("(SERVICE_NAME=ORCLPDB1)"))
	assert.Contains(t, variants[3].dsn, "CONNECTION TIMEOUT=5")

	for _, v := range variants {
		assert.NotContains(t, v.dsn, "p@ss word", "%s must escape the password", v.name)
	}
}

func TestConnectVariants_Descriptor(t *testing.T) {
	cfg := &models.ConnectionConfig{Dialect: models.DialectOracle, Username: "hr", Password: "pw"}
	descriptor := "(DESCRIPTION=(ADDRESS=(PROTOCOL=TCP)(HOST=h)(PORT=1521))(CONNECT_DATA=(SID=XE)))"

	for _, v := range connectVariants(cfg, target{descriptor: descriptor}, time.Second) {
		assert.Contains(t, v.dsn, url.QueryEscape(descriptor), v.name)
	}
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, "0A0B", normalizeValue("RAW", []byte{0x0a, 0x0b}))
	assert.Equal(t, "text", normalizeValue("VARCHAR2", []byte("text")))
	assert.Equal(t, int64(1), normalizeValue("NUMBER", int64(1)))
}
