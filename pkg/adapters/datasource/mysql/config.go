package mysql

import (
	"net"
	"strconv"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// tlsModes returns the go-sql-driver tls values to try in order. Without an
// explicit SSL request the server decides, then plaintext.
func tlsModes(requireSSL bool) []string {
	if requireSSL {
		return []string{"true", "skip-verify"}
	}
	return []string{"preferred", "false"}
}

// buildDSN formats a go-sql-driver DSN through Config so passwords containing
// '@' or '/' survive.
func buildDSN(cfg *models.ConnectionConfig, ep datasource.Endpoint, tlsMode string, timeout time.Duration) string {
	c := mysqldrv.NewConfig()
	c.User = cfg.Username
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(ep.Host, strconv.Itoa(ep.Port))
	c.DBName = ep.Database
	c.TLSConfig = tlsMode
	c.Timeout = timeout
	c.ParseTime = true
	c.Params = map[string]string{"charset": "utf8mb4"}
	return c.FormatDSN()
}
