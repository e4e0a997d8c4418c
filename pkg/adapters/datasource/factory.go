package datasource

import (
	"fmt"
	"sync"

	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// ProviderSet builds providers from the global registry on first use and
// hands out the same instance afterwards.
type ProviderSet struct {
	opts ProviderOptions

	mu        sync.Mutex
	providers map[models.Dialect]Provider
}

// NewProviderSet returns a set that uses the global registry.
func NewProviderSet(opts ProviderOptions) *ProviderSet {
	return &ProviderSet{
		opts:      opts.WithDefaults(),
		providers: make(map[models.Dialect]Provider),
	}
}

// Provider returns the provider for dialect.
func (s *ProviderSet) Provider(dialect models.Dialect) (Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.providers[dialect]; ok {
		return p, nil
	}
	reg, ok := lookup(dialect)
	if !ok || reg.ProviderFactory == nil {
		return nil, fmt.Errorf("%w: %s (not compiled in)", apperrors.ErrUnknownDialect, dialect)
	}
	p := reg.ProviderFactory(s.opts)
	s.providers[dialect] = p
	return p, nil
}

// Catalog returns the metadata queries for dialect.
func (s *ProviderSet) Catalog(dialect models.Dialect) (Catalog, error) {
	reg, ok := lookup(dialect)
	if !ok || reg.Catalog == nil {
		return nil, fmt.Errorf("%w: %s has no catalog", apperrors.ErrUnknownDialect, dialect)
	}
	return reg.Catalog, nil
}

// Dialects lists what the set can serve.
func (s *ProviderSet) Dialects() []DialectInfo {
	return Registered()
}

var _ ProviderLookup = (*ProviderSet)(nil)
