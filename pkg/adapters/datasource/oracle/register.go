package oracle

import (
	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.DialectInfo{
			Dialect:     string(models.DialectOracle),
			DisplayName: models.DialectOracle.DisplayName(),
			Description: "Oracle Database 11g+ via go-ora (no Instant Client required)",
			DefaultPort: models.DialectOracle.DefaultPort(),
		},
		ProviderFactory: func(opts datasource.ProviderOptions) datasource.Provider {
			return NewProvider(opts)
		},
		Catalog: Catalog{},
	})
}
