package mysql

import (
	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.DialectInfo{
			Dialect:     string(models.DialectMySQL),
			DisplayName: models.DialectMySQL.DisplayName(),
			Description: "MySQL 5.7+, MariaDB, Aurora MySQL via go-sql-driver",
			DefaultPort: models.DialectMySQL.DefaultPort(),
		},
		ProviderFactory: func(opts datasource.ProviderOptions) datasource.Provider {
			return NewProvider(opts)
		},
		Catalog: Catalog{},
	})
}
