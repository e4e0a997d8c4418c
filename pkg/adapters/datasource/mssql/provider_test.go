package mssql

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
)

func TestProvider_ConnectUnreachable(t *testing.T) {
	p := NewProvider(datasource.ProviderOptions{
		AttemptTimeout: 300 * time.Millisecond,
		Logger:         zaptest.NewLogger(t),
	})

	_, err := p.Connect(context.Background(), &models.ConnectionConfig{
		Dialect:  models.DialectMSSQL,
		Username: "sa",
		Password: "Sup3rSecret!",
		Host:     "127.0.0.1",
		Port:     1,
	})
	require.Error(t, err)

	connErr, ok := apperrors.AsConnectionError(err)
	require.True(t, ok)
	assert.Equal(t, "mssql", connErr.Dialect)
	assert.NotContains(t, connErr.Error(), "Sup3rSecret!")
}

func TestProvider_RejectsClosedHandle(t *testing.T) {
	p := NewProvider(datasource.ProviderOptions{})
	h := datasource.NewHandle(models.DialectMSSQL, &models.ConnectionConfig{Username: "u", Host: "h"}, "encrypt=true", nil)

	_, err := p.ExecuteQuery(context.Background(), h, "SELECT 1")
	assert.ErrorIs(t, err, apperrors.ErrHandleClosed)
}
