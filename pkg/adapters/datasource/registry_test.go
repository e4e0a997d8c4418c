package datasource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

func TestProviderSet_BuildsOncePerDialect(t *testing.T) {
	const dialect = models.Dialect("registry-test")
	built := 0
	Register(Registration{
		Info: DialectInfo{Dialect: string(dialect), DisplayName: "Registry Test"},
		ProviderFactory: func(opts ProviderOptions) Provider {
			built++
			assert.Equal(t, DefaultAttemptTimeout, opts.AttemptTimeout)
			assert.Equal(t, int32(2), opts.PoolMaxConns)
			assert.Equal(t, "db", opts.ResolveHost("db"))
			return newFakeProvider(dialect)
		},
	})
	t.Cleanup(func() {
		registryMu.Lock()
		delete(registry, dialect)
		registryMu.Unlock()
	})

	set := NewProviderSet(ProviderOptions{Logger: zaptest.NewLogger(t)})
	p1, err := set.Provider(dialect)
	require.NoError(t, err)
	p2, err := set.Provider(dialect)
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.Equal(t, 1, built)
	assert.True(t, IsRegistered(dialect))

	_, err = set.Catalog(dialect)
	assert.ErrorIs(t, err, apperrors.ErrUnknownDialect, "registration without a catalog")
}

func TestProviderSet_UnknownDialect(t *testing.T) {
	set := NewProviderSet(ProviderOptions{})
	_, err := set.Provider(models.Dialect("db2"))
	assert.ErrorIs(t, err, apperrors.ErrUnknownDialect)
}
