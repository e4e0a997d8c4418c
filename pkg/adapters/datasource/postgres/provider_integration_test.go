//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	"github.com/ekaya-inc/ekaya-askdb/pkg/testhelpers"
)

func connectTestDB(t *testing.T) (*Provider, *datasource.Handle) {
	t.Helper()
	testDB := testhelpers.GetTestDB(t)

	p := NewProvider(datasource.ProviderOptions{Logger: zaptest.NewLogger(t)})
	h, err := p.Connect(context.Background(), &models.ConnectionConfig{
		Dialect:  models.DialectPostgres,
		Username: testDB.User,
		Password: testDB.Password,
		Host:     testDB.Host,
		Port:     testDB.Port,
		Database: testDB.Database,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.CloseConnection(context.Background(), h) })
	return p, h
}

func TestProvider_Integration_ConnectFallsBackToPlaintext(t *testing.T) {
	p, h := connectTestDB(t)

	// The stock image has no TLS, so sslmode=prefer downgrades on the first attempt.
	assert.Equal(t, "sslmode=prefer", h.Variant())
	assert.Equal(t, models.DialectPostgres, h.Dialect())

	user, err := p.CurrentUser(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, "askdb", user)
}

func TestProvider_Integration_WrongPassword(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	p := NewProvider(datasource.ProviderOptions{Logger: zaptest.NewLogger(t)})

	_, err := p.Connect(context.Background(), &models.ConnectionConfig{
		Dialect:  models.DialectPostgres,
		Username: testDB.User,
		Password: "wrong",
		Host:     testDB.Host,
		Port:     testDB.Port,
		Database: testDB.Database,
	})
	assert.True(t, apperrors.IsConnectionKind(err, apperrors.ConnAuthFailure))
}

func TestProvider_Integration_ExecutorAndCatalog(t *testing.T) {
	p, h := connectTestDB(t)
	ctx := context.Background()
	exec := datasource.NewQueryExecutor(lookup{p}, 5*time.Second, zaptest.NewLogger(t))

	rs, err := exec.Execute(ctx, h, "SELECT name FROM sales.customers ORDER BY customer_id;", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"name"}, rs.Columns)
	assert.Equal(t, "Ada Lovelace", rs.Rows[0]["name"])

	_, err = exec.Execute(ctx, h, "SELECT * FROM sales.nope", 0)
	assert.True(t, apperrors.IsQueryKind(err, apperrors.QueryUnknownObject))

	_, err = exec.Execute(ctx, h, "SELECT pg_sleep(5)", 100*time.Millisecond)
	assert.True(t, apperrors.IsQueryKind(err, apperrors.QueryTimeout))

	q := exec.Querier(h)
	schemas, err := Catalog{}.ListSchemas(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, []string{"public", "sales"}, schemas)

	rels, err := Catalog{}.ForeignKeys(ctx, q, "sales", []string{"orders"})
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, "customers", rels[0].Target.Table)

	// Declared as (order_id, line_no) on a table whose columns run line_no, order_id.
	rels, err = Catalog{}.ForeignKeys(ctx, q, "public", []string{"refunds"})
	require.NoError(t, err)
	require.Len(t, rels, 2)
	for _, rel := range rels {
		assert.Equal(t, "sales", rel.Target.Schema)
		assert.Equal(t, "order_lines", rel.Target.Table)
		assert.Equal(t, rel.Source.Column, rel.Target.Column)
	}
}

type lookup struct{ p *Provider }

func (l lookup) Provider(models.Dialect) (datasource.Provider, error) { return l.p, nil }
