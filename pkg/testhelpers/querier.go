package testhelpers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// ScriptedQuerier answers queries by substring match, first rule wins.
// Unmatched queries fail, so a catalog test notices any statement it did not expect.
type ScriptedQuerier struct {
	mu      sync.Mutex
	rules   []scriptRule
	queries []string
}

type scriptRule struct {
	contains string
	result   *models.ResultSet
	err      error
}

// On answers queries containing fragment with the given rows.
func (q *ScriptedQuerier) On(fragment string, columns []string, rows ...models.Row) *ScriptedQuerier {
	q.mu.Lock()
	defer q.mu.Unlock()
	if rows == nil {
		rows = []models.Row{}
	}
	q.rules = append(q.rules, scriptRule{contains: fragment, result: &models.ResultSet{Columns: columns, Rows: rows}})
	return q
}

// Fail makes queries containing fragment return err.
func (q *ScriptedQuerier) Fail(fragment string, err error) *ScriptedQuerier {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.rules = append(q.rules, scriptRule{contains: fragment, err: err})
	return q
}

func (q *ScriptedQuerier) Query(_ context.Context, sql string, _ time.Duration) (*models.ResultSet, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.queries = append(q.queries, sql)
	for _, r := range q.rules {
		if strings.Contains(sql, r.contains) {
			return r.result, r.err
		}
	}
	return nil, fmt.Errorf("unexpected query: %s", strings.Join(strings.Fields(sql), " "))
}

// Queries returns every statement seen, in order.
func (q *ScriptedQuerier) Queries() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.queries...)
}
