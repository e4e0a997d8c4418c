package postgres

import (
	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.DialectInfo{
			Dialect:     string(models.DialectPostgres),
			DisplayName: models.DialectPostgres.DisplayName(),
			Description: "PostgreSQL 12+, Aurora PostgreSQL, Supabase via pgx",
			DefaultPort: models.DialectPostgres.DefaultPort(),
		},
		ProviderFactory: func(opts datasource.ProviderOptions) datasource.Provider {
			return NewProvider(opts)
		},
		Catalog: Catalog{},
	})
}
