package datasource

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

func newTestRegistry(t *testing.T, p *fakeProvider) *ConnectionRegistry {
	t.Helper()
	r := NewConnectionRegistry(fakeLookup{p.dialect: p}, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = r.Shutdown(context.Background()) })
	return r
}

func TestConnectionRegistry_ReusesHandleForSameIdentity(t *testing.T) {
	p := newFakeProvider(models.DialectPostgres)
	r := newTestRegistry(t, p)
	ctx := context.Background()

	h1, err := r.Connect(ctx, testConfig("alice", "pw"))
	require.NoError(t, err)
	h2, err := r.Connect(ctx, testConfig("alice", "pw"))
	require.NoError(t, err)

	assert.Same(t, h1, h2)
	assert.Equal(t, int32(1), p.connects.Load())
	assert.Equal(t, models.DialectPostgres, h1.Dialect())

	stats := r.Stats()
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, 2, stats.ActiveReferences)
	assert.Equal(t, 1, stats.ConnectionsByDialect["postgres"])
}

func TestConnectionRegistry_DifferentUsersGetDifferentHandles(t *testing.T) {
	p := newFakeProvider(models.DialectPostgres)
	r := newTestRegistry(t, p)
	ctx := context.Background()

	h1, err := r.Connect(ctx, testConfig("alice", "pw"))
	require.NoError(t, err)
	h2, err := r.Connect(ctx, testConfig("bob", "pw"))
	require.NoError(t, err)

	assert.NotSame(t, h1, h2)
	assert.Equal(t, 2, r.Stats().TotalConnections)
}

func TestConnectionRegistry_ConcurrentConnectsShareOneProviderConnect(t *testing.T) {
	p := newFakeProvider(models.DialectPostgres)
	p.delay = 50 * time.Millisecond
	r := newTestRegistry(t, p)

	const callers = 16
	handles := make([]*Handle, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := r.Connect(context.Background(), testConfig("alice", "pw"))
			assert.NoError(t, err)
			handles[i] = h
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), p.connects.Load(), "racing callers must produce exactly one provider connect")
	for _, h := range handles {
		assert.Same(t, handles[0], h)
	}
	assert.Equal(t, callers, r.Stats().ActiveReferences)
}

func TestConnectionRegistry_FailedConnectIsNotCached(t *testing.T) {
	p := newFakeProvider(models.DialectPostgres)
	fail := true
	p.newSession = func(*models.ConnectionConfig) (Session, error) {
		if fail {
			return nil, &fakeDriverError{Code: "28P01", Msg: "password authentication failed"}
		}
		return &fakeSession{}, nil
	}
	r := newTestRegistry(t, p)
	ctx := context.Background()

	_, err := r.Connect(ctx, testConfig("alice", "pw"))
	require.Error(t, err)
	assert.True(t, apperrors.IsConnectionKind(err, apperrors.ConnAuthFailure))
	assert.Equal(t, 0, r.Stats().TotalConnections)

	fail = false
	h, err := r.Connect(ctx, testConfig("alice", "pw"))
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Equal(t, int32(2), p.connects.Load(), "second attempt must reach the provider")
}

func TestConnectionRegistry_CloseIsReferenceCounted(t *testing.T) {
	p := newFakeProvider(models.DialectPostgres)
	r := newTestRegistry(t, p)
	ctx := context.Background()

	h, err := r.Connect(ctx, testConfig("alice", "pw"))
	require.NoError(t, err)
	_, err = r.Connect(ctx, testConfig("alice", "pw"))
	require.NoError(t, err)

	require.NoError(t, r.Close(ctx, h))
	assert.False(t, h.IsClosed(), "one reference still outstanding")
	assert.Equal(t, int32(0), p.closes.Load())

	require.NoError(t, r.Close(ctx, h))
	assert.True(t, h.IsClosed())
	assert.Equal(t, int32(1), p.closes.Load())
	assert.Equal(t, 0, r.Stats().TotalConnections)

	// Releasing again is harmless.
	require.NoError(t, r.Close(ctx, h))
	assert.Equal(t, int32(1), p.closes.Load())
}

func TestConnectionRegistry_ReconnectsAfterLastClose(t *testing.T) {
	p := newFakeProvider(models.DialectPostgres)
	r := newTestRegistry(t, p)
	ctx := context.Background()

	h1, err := r.Connect(ctx, testConfig("alice", "pw"))
	require.NoError(t, err)
	require.NoError(t, r.Close(ctx, h1))

	h2, err := r.Connect(ctx, testConfig("alice", "pw"))
	require.NoError(t, err)
	assert.NotSame(t, h1, h2)
	assert.Equal(t, int32(2), p.connects.Load())
}

func TestConnectionRegistry_PasswordMismatchGetsUncachedHandle(t *testing.T) {
	p := newFakeProvider(models.DialectPostgres)
	r := newTestRegistry(t, p)
	ctx := context.Background()

	cached, err := r.Connect(ctx, testConfig("alice", "right"))
	require.NoError(t, err)
	other, err := r.Connect(ctx, testConfig("alice", "wrong"))
	require.NoError(t, err)

	assert.NotSame(t, cached, other)
	stats := r.Stats()
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, 1, stats.ActiveReferences)
	assert.Equal(t, 1, stats.Uncached)

	require.NoError(t, r.Close(ctx, other))
	assert.True(t, other.IsClosed())
	assert.False(t, cached.IsClosed())
}

func TestConnectionRegistry_ShutdownClosesEverything(t *testing.T) {
	p := newFakeProvider(models.DialectPostgres)
	r := NewConnectionRegistry(fakeLookup{p.dialect: p}, zaptest.NewLogger(t))
	ctx := context.Background()

	h1, err := r.Connect(ctx, testConfig("alice", "pw"))
	require.NoError(t, err)
	h2, err := r.Connect(ctx, testConfig("bob", "pw"))
	require.NoError(t, err)

	require.NoError(t, r.Shutdown(ctx))
	assert.True(t, h1.IsClosed())
	assert.True(t, h2.IsClosed())

	_, err = r.Connect(ctx, testConfig("alice", "pw"))
	assert.True(t, errors.Is(err, apperrors.ErrRegistryClosed))
	require.NoError(t, r.Shutdown(ctx))
}

func TestConnectionRegistry_RejectsInvalidConfig(t *testing.T) {
	p := newFakeProvider(models.DialectPostgres)
	r := newTestRegistry(t, p)

	_, err := r.Connect(context.Background(), &models.ConnectionConfig{Dialect: models.DialectPostgres})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
	assert.Equal(t, int32(0), p.connects.Load())
}

func TestConnectionRegistry_UnknownDialect(t *testing.T) {
	p := newFakeProvider(models.DialectPostgres)
	r := newTestRegistry(t, p)

	cfg := testConfig("alice", "pw")
	cfg.Dialect = models.DialectOracle
	_, err := r.Connect(context.Background(), cfg)
	assert.ErrorIs(t, err, apperrors.ErrUnknownDialect)
}

func TestConnectionRegistry_AcceptsDialectAlias(t *testing.T) {
	p := newFakeProvider(models.DialectPostgres)
	r := newTestRegistry(t, p)

	cfg := testConfig("alice", "pw")
	cfg.Dialect = "postgresql"
	h, err := r.Connect(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, models.DialectPostgres, h.Dialect())
	assert.Equal(t, int32(1), p.connects.Load())
}
