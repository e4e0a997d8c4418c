package oracle

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	go_ora "github.com/sijms/go-ora/v2"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// DefaultService is used when the config names no service.
const DefaultService = "orcl"

// target is where an Oracle connection goes: either host/port/service or a
// complete TNS descriptor supplied by the caller.
type target struct {
	host       string
	port       int
	service    string
	descriptor string
}

// isEasyConnect reports whether s looks like host:port/service.
func isEasyConnect(s string) bool {
	return strings.Contains(s, ":") && strings.Contains(s, "/")
}

func isDescriptor(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "(")
}

func resolveTarget(cfg *models.ConnectionConfig, resolveHost func(string) string) target {
	if cfg.Host == "" && isDescriptor(cfg.ConnectionString) {
		return target{descriptor: strings.TrimSpace(cfg.ConnectionString)}
	}
	ep := datasource.ResolveEndpoint(cfg, resolveHost)
	service := ep.Database
	if service == "" {
		service = DefaultService
	}
	return target{host: ep.Host, port: ep.Port, service: service}
}

// tnsDescriptor renders host/port/service as a TNS connect descriptor.
func (t target) tnsDescriptor() string {
	if t.descriptor != "" {
		return t.descriptor
	}
	return fmt.Sprintf("(DESCRIPTION=(ADDRESS=(PROTOCOL=TCP)(HOST=%s)(PORT=%d))(CONNECT_DATA=(SERVICE_NAME=%s)))",
		t.host, t.port, t.service)
}

func (t target) url(cfg *models.ConnectionConfig, options map[string]string) string {
	if t.descriptor != "" {
		return go_ora.BuildJDBC(cfg.Username, cfg.Password, t.descriptor, options)
	}
	return go_ora.BuildUrl(t.host, t.port, t.service, cfg.Username, cfg.Password, options)
}

// connectVariant is one way of reaching the server.
type connectVariant struct {
	name string
	dsn  string
}

// connectVariants lists the forms tried in order: SYSDBA easy connect, plain
// easy connect, a TNS descriptor, then easy connect with a longer connect
// timeout for slow listeners.
func connectVariants(cfg *models.ConnectionConfig, t target, timeout time.Duration) []connectVariant {
	timeoutSeconds := strconv.Itoa(max(int(timeout.Seconds()), 1))
	return []connectVariant{
		{name: "sysdba", dsn: t.url(cfg, map[string]string{"DBA PRIVILEGE": "SYSDBA"})},
		{name: "easy-connect", dsn: t.url(cfg, nil)},
		{name: "tns-descriptor", dsn: go_ora.BuildJDBC(cfg.Username, cfg.Password, t.tnsDescriptor(), nil)},
		{name: "connect-timeout", dsn: t.url(cfg, map[string]string{"CONNECTION TIMEOUT": timeoutSeconds})},
	}
}
