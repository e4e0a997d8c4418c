package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckValueForInjection_Clean(t *testing.T) {
	clean := []string{"", "HR", "dbo", "sales_2024", "APPLICATION"}
	for _, v := range clean {
		t.Run(v, func(t *testing.T) {
			assert.Nil(t, CheckValueForInjection("schema_hint", v))
		})
	}
}

func TestCheckValueForInjection_Flagged(t *testing.T) {
	patterns := []string{
		"' OR '1'='1",
		"'; DROP TABLE users--",
		"admin'--",
		"1 UNION SELECT * FROM users",
	}
	for _, v := range patterns {
		t.Run(v, func(t *testing.T) {
			result := CheckValueForInjection("schema_hint", v)
			require.NotNil(t, result)
			assert.Equal(t, "schema_hint", result.Name)
			assert.Equal(t, v, result.Value)
			assert.NotEmpty(t, result.Fingerprint)
		})
	}
}
