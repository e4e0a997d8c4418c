package mssql

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// encryptVariant is one TLS setting to try when connecting.
type encryptVariant struct {
	name                   string
	encrypt                string
	trustServerCertificate bool
}

// encryptVariants lists TLS settings in the order they are tried: encrypted
// with a self-signed certificate accepted, then login-only encryption.
var encryptVariants = []encryptVariant{
	{name: "encrypt=true", encrypt: "true", trustServerCertificate: true},
	{name: "encrypt=false", encrypt: "false"},
}

// buildConnectionString builds a sqlserver:// URL. Credentials are escaped so
// passwords with URL metacharacters survive parsing.
func buildConnectionString(cfg *models.ConnectionConfig, ep datasource.Endpoint, variant encryptVariant, timeout time.Duration) string {
	query := url.Values{}
	if ep.Database != "" {
		query.Add("database", ep.Database)
	}
	query.Add("encrypt", variant.encrypt)
	if variant.trustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}
	if timeout > 0 {
		query.Add("connection timeout", strconv.Itoa(int(timeout.Seconds()+0.5)))
	}
	query.Add("app name", "ekaya-askdb")

	return fmt.Sprintf("sqlserver://%s:%s@%s:%d?%s",
		url.QueryEscape(cfg.Username),
		url.QueryEscape(cfg.Password),
		ep.Host,
		ep.Port,
		query.Encode(),
	)
}
