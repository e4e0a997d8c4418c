package datasource

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

func TestConnectFirst_StopsAtFirstSuccess(t *testing.T) {
	var tried []string
	attempt := func(name string, err error) ConnectAttempt {
		return ConnectAttempt{Name: name, Open: func(context.Context) (Session, error) {
			tried = append(tried, name)
			if err != nil {
				return nil, err
			}
			return &fakeSession{}, nil
		}}
	}

	session, variant, err := ConnectFirst(context.Background(), []ConnectAttempt{
		attempt("sslmode=require", errors.New("server does not support SSL")),
		attempt("sslmode=prefer", nil),
		attempt("sslmode=disable", nil),
	}, time.Second, "SELECT 1", zaptest.NewLogger(t))

	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "sslmode=prefer", variant)
	assert.Equal(t, []string{"sslmode=require", "sslmode=prefer"}, tried)
}

func TestConnectFirst_FailedVerificationClosesAndContinues(t *testing.T) {
	bad := &fakeSession{respond: func(context.Context, string) (*models.ResultSet, error) {
		return nil, errors.New("ORA-01031: insufficient privileges")
	}}
	good := &fakeSession{}

	session, variant, err := ConnectFirst(context.Background(), []ConnectAttempt{
		{Name: "sysdba", Open: func(context.Context) (Session, error) { return bad, nil }},
		{Name: "easy-connect", Open: func(context.Context) (Session, error) { return good, nil }},
	}, time.Second, "SELECT 1 AS TEST_CONNECTION FROM dual", zaptest.NewLogger(t))

	require.NoError(t, err)
	assert.Same(t, good, session)
	assert.Equal(t, "easy-connect", variant)
	assert.Equal(t, 1, bad.closed, "session that failed verification must be closed")
	assert.Equal(t, []string{"SELECT 1 AS TEST_CONNECTION FROM dual"}, good.Queries())
}

func TestConnectFirst_ReturnsLastError(t *testing.T) {
	first := errors.New("first")
	last := errors.New("last")

	_, _, err := ConnectFirst(context.Background(), []ConnectAttempt{
		{Name: "a", Open: func(context.Context) (Session, error) { return nil, first }},
		{Name: "b", Open: func(context.Context) (Session, error) { return nil, last }},
	}, time.Second, "SELECT 1", zaptest.NewLogger(t))

	assert.ErrorIs(t, err, last)
}

func TestConnectFirst_EachAttemptHasItsOwnDeadline(t *testing.T) {
	hang := func(ctx context.Context) (Session, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	start := time.Now()
	_, _, err := ConnectFirst(context.Background(), []ConnectAttempt{
		{Name: "hang-1", Open: hang},
		{Name: "hang-2", Open: hang},
	}, 30*time.Millisecond, "SELECT 1", zaptest.NewLogger(t))

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestConnectFirst_StopsWhenParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, _, err := ConnectFirst(ctx, []ConnectAttempt{
		{Name: "a", Open: func(context.Context) (Session, error) { called = true; return &fakeSession{}, nil }},
	}, time.Second, "SELECT 1", nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestConnectFirst_NoAttempts(t *testing.T) {
	_, _, err := ConnectFirst(context.Background(), nil, time.Second, "SELECT 1", nil)
	assert.Error(t, err)
}

func TestResolveEndpoint(t *testing.T) {
	tests := []struct {
		name string
		cfg  models.ConnectionConfig
		want Endpoint
	}{
		{
			name: "explicit fields",
			cfg:  models.ConnectionConfig{Dialect: models.DialectMySQL, Host: "db", Database: "shop"},
			want: Endpoint{Host: "db", Port: 3306, Database: "shop"},
		},
		{
			name: "connection string with port and database",
			cfg:  models.ConnectionConfig{Dialect: models.DialectPostgres, ConnectionString: "pg.internal:6432/analytics"},
			want: Endpoint{Host: "pg.internal", Port: 6432, Database: "analytics"},
		},
		{
			name: "connection string host only",
			cfg:  models.ConnectionConfig{Dialect: models.DialectMSSQL, ConnectionString: "sql01"},
			want: Endpoint{Host: "sql01", Port: 1433},
		},
		{
			name: "explicit port beats connection string",
			cfg:  models.ConnectionConfig{Dialect: models.DialectPostgres, ConnectionString: "pg:6432/x", Port: 5433},
			want: Endpoint{Host: "pg", Port: 5433, Database: "x"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveEndpoint(&tt.cfg, nil))
		})
	}

	cfg := models.ConnectionConfig{Dialect: models.DialectPostgres, Host: "localhost"}
	ep := ResolveEndpoint(&cfg, func(string) string { return "host.docker.internal" })
	assert.Equal(t, "host.docker.internal", ep.Host)
}
