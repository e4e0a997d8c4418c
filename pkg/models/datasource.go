package models

import (
	"errors"
	"fmt"
	"strings"
)

// ConnectionConfig describes one target database for a single request.
// Providers copy what they need and never mutate it.
type ConnectionConfig struct {
	Dialect  Dialect `json:"dialect" yaml:"dialect"`
	Username string  `json:"username" yaml:"username"`
	Password string  `json:"-" yaml:"-"`

	// ConnectionString is the Oracle easy-connect form (host[:port]/service).
	// When empty, Host/Port/Database are used instead.
	ConnectionString string `json:"connection_string,omitempty" yaml:"connection_string,omitempty"`

	Host     string `json:"host,omitempty" yaml:"host,omitempty"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	Database string `json:"database,omitempty" yaml:"database,omitempty"`

	// SSL asks providers that support it to require TLS first.
	SSL bool `json:"ssl,omitempty" yaml:"ssl,omitempty"`

	SchemaHint string `json:"schema_hint,omitempty" yaml:"schema_hint,omitempty"`
}

// Validate checks the fields every provider needs and rewrites a dialect
// alias such as "pg" to its canonical name.
func (c *ConnectionConfig) Validate() error {
	if c == nil {
		return errors.New("connection config is required")
	}
	dialect, err := ParseDialect(string(c.Dialect))
	if err != nil {
		return err
	}
	c.Dialect = dialect
	if c.Username == "" {
		return errors.New("username is required")
	}
	if c.ConnectionString == "" && c.Host == "" {
		return errors.New("either connection_string or host is required")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	return nil
}

// EffectivePort returns Port, or the dialect default when unset.
func (c *ConnectionConfig) EffectivePort() int {
	if c.Port > 0 {
		return c.Port
	}
	return c.Dialect.DefaultPort()
}

// Target returns the connection string identifying the server and database:
// the explicit connection string when given, otherwise host:port/database.
func (c *ConnectionConfig) Target() string {
	if c.ConnectionString != "" {
		return strings.TrimSpace(c.ConnectionString)
	}
	target := fmt.Sprintf("%s:%d", c.Host, c.EffectivePort())
	if c.Database != "" {
		target += "/" + c.Database
	}
	return target
}

// Identity is the registry key: username@connectionString.
func (c *ConnectionConfig) Identity() string {
	return c.Username + "@" + c.Target()
}
