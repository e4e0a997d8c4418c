package datasource

import (
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// GuessPrimaryKey picks a likely key column when the catalog reports none:
// "id", then "<singular table>_id" or "<singular table>id", then the first
// column whose name ends in "id". Returns nil when nothing qualifies.
func GuessPrimaryKey(table string, columns []models.Column) []string {
	if len(columns) == 0 {
		return nil
	}

	for _, c := range columns {
		if strings.EqualFold(c.Name, "id") {
			return []string{c.Name}
		}
	}

	singular := strings.ToLower(inflection.Singular(table))
	for _, c := range columns {
		name := strings.ToLower(c.Name)
		if name == singular+"_id" || name == singular+"id" {
			return []string{c.Name}
		}
	}

	for _, c := range columns {
		if strings.HasSuffix(strings.ToLower(c.Name), "id") {
			return []string{c.Name}
		}
	}
	return nil
}
