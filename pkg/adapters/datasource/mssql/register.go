package mssql

import (
	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.DialectInfo{
			Dialect:     string(models.DialectMSSQL),
			DisplayName: models.DialectMSSQL.DisplayName(),
			Description: "SQL Server 2016+, Azure SQL Database via go-mssqldb",
			DefaultPort: models.DialectMSSQL.DefaultPort(),
		},
		ProviderFactory: func(opts datasource.ProviderOptions) datasource.Provider {
			return NewProvider(opts)
		},
		Catalog: Catalog{},
	})
}
