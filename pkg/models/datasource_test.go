package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in      string
		want    Dialect
		wantErr bool
	}{
		{"oracle", DialectOracle, false},
		{" PostgreSQL ", DialectPostgres, false},
		{"pg", DialectPostgres, false},
		{"MariaDB", DialectMySQL, false},
		{"sqlserver", DialectMSSQL, false},
		{"db2", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDialect(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConnectionConfig_Validate(t *testing.T) {
	valid := func() *ConnectionConfig {
		return &ConnectionConfig{Dialect: DialectPostgres, Username: "reader", Host: "db"}
	}

	tests := []struct {
		name    string
		mutate  func(c *ConnectionConfig)
		wantErr string
	}{
		{"valid", func(*ConnectionConfig) {}, ""},
		{"connection string instead of host", func(c *ConnectionConfig) { c.Host = ""; c.ConnectionString = "db:1521/XE" }, ""},
		{"bad dialect", func(c *ConnectionConfig) { c.Dialect = "db2" }, "unsupported dialect"},
		{"no user", func(c *ConnectionConfig) { c.Username = "" }, "username is required"},
		{"no target", func(c *ConnectionConfig) { c.Host = "" }, "either connection_string or host"},
		{"port too large", func(c *ConnectionConfig) { c.Port = 70000 }, "invalid port"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}

	var nilCfg *ConnectionConfig
	assert.Error(t, nilCfg.Validate())
}

func TestConnectionConfig_ValidateCanonicalizesDialect(t *testing.T) {
	for _, alias := range []string{"pg", "PostgreSQL", " postgres "} {
		c := &ConnectionConfig{Dialect: Dialect(alias), Username: "reader", Host: "db"}
		require.NoError(t, c.Validate())
		assert.Equal(t, DialectPostgres, c.Dialect)
	}
}

func TestConnectionConfig_Identity(t *testing.T) {
	c := &ConnectionConfig{Dialect: DialectMySQL, Username: "app", Host: "db", Database: "shop"}
	assert.Equal(t, 3306, c.EffectivePort())
	assert.Equal(t, "app@db:3306/shop", c.Identity())

	c.ConnectionString = " db:1521/ORCLPDB1 "
	assert.Equal(t, "app@db:1521/ORCLPDB1", c.Identity())
}
