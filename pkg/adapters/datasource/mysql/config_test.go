package mysql

import (
	"testing"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

func TestTLSModes(t *testing.T) {
	assert.Equal(t, []string{"preferred", "false"}, tlsModes(false))
	assert.Equal(t, []string{"true", "skip-verify"}, tlsModes(true))
}

func TestBuildDSN_RoundTrips(t *testing.T) {
	cfg := &models.ConnectionConfig{
		Dialect:  models.DialectMySQL,
		Username: "shop",
		Password: "p@ss/w:rd",
		Host:     "mysql.internal",
		Database: "shop",
	}
	dsn := buildDSN(cfg, datasource.ResolveEndpoint(cfg, nil), "preferred", 5*time.Second)

	parsed, err := mysqldrv.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "shop", parsed.User)
	assert.Equal(t, "p@ss/w:rd", parsed.Passwd)
	assert.Equal(t, "mysql.internal:3306", parsed.Addr)
	assert.Equal(t, "shop", parsed.DBName)
	assert.Equal(t, "preferred", parsed.TLSConfig)
	assert.Equal(t, 5*time.Second, parsed.Timeout)
}

func TestNormalizeValue(t *testing.T) {
	tests := []struct {
		dbType string
		in     any
		want   any
	}{
		{"BIGINT", []byte("42"), int64(42)},
		{"UNSIGNED BIGINT", []byte("18446744073709551615"), uint64(18446744073709551615)},
		{"DECIMAL", []byte("9.75"), 9.75},
		{"VARCHAR", []byte("hello"), "hello"},
		{"INT", int64(7), int64(7)},
	}
	for _, tt := range tests {
		t.Run(tt.dbType, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeValue(tt.dbType, tt.in))
		})
	}
}
