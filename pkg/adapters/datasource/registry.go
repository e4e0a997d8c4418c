package datasource

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// ProviderOptions carries process-wide settings into provider factories.
type ProviderOptions struct {
	AttemptTimeout time.Duration // per connection variant; 0 means DefaultAttemptTimeout
	PoolMaxConns   int32
	// ResolveHost rewrites hostnames before dialing, e.g. localhost inside Docker.
	ResolveHost func(host string) string
	Logger      *zap.Logger
}

// DefaultAttemptTimeout bounds each connection variant.
const DefaultAttemptTimeout = 5 * time.Second

// WithDefaults fills unset fields.
func (o ProviderOptions) WithDefaults() ProviderOptions {
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = DefaultAttemptTimeout
	}
	if o.PoolMaxConns <= 0 {
		o.PoolMaxConns = 2
	}
	if o.ResolveHost == nil {
		o.ResolveHost = func(host string) string { return host }
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Registration contains info plus the constructors for one dialect.
type Registration struct {
	Info            DialectInfo
	ProviderFactory func(opts ProviderOptions) Provider
	Catalog         Catalog
}

var (
	registryMu sync.RWMutex
	registry   = make(map[models.Dialect]Registration)
)

// Register is called by each dialect package's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg Registration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[models.Dialect(reg.Info.Dialect)] = reg
}

// Registered returns info for all registered dialects, sorted by name.
func Registered() []DialectInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]DialectInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Dialect < result[j].Dialect })
	return result
}

// IsRegistered checks if a dialect is available.
func IsRegistered(dialect models.Dialect) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := registry[dialect]
	return ok
}

func lookup(dialect models.Dialect) (Registration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[dialect]
	return reg, ok
}
