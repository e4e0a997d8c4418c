package datasource

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	sqlcheck "github.com/ekaya-inc/ekaya-askdb/pkg/sql"
)

// DefaultQueryTimeout applies when Execute is given a non-positive timeout.
const DefaultQueryTimeout = 10 * time.Second

// DefaultCatalogTimeout bounds each metadata query unless SetCatalogTimeout
// says otherwise.
const DefaultCatalogTimeout = 5 * time.Second

// QueryExecutor is the only path by which generated SQL reaches a database.
type QueryExecutor struct {
	providers      ProviderLookup
	defaultTimeout time.Duration
	catalogTimeout time.Duration
	logger         *zap.Logger
}

// NewQueryExecutor creates an executor. A non-positive defaultTimeout means DefaultQueryTimeout.
func NewQueryExecutor(providers ProviderLookup, defaultTimeout time.Duration, logger *zap.Logger) *QueryExecutor {
	if defaultTimeout <= 0 {
		defaultTimeout = DefaultQueryTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueryExecutor{
		providers:      providers,
		defaultTimeout: defaultTimeout,
		catalogTimeout: DefaultCatalogTimeout,
		logger:         logger.Named("executor"),
	}
}

// SetCatalogTimeout changes the timeout applied to catalog queries that do
// not name one. Non-positive values are ignored.
func (e *QueryExecutor) SetCatalogTimeout(d time.Duration) {
	if d > 0 {
		e.catalogTimeout = d
	}
}

type queryOutcome struct {
	rs  *models.ResultSet
	err error
}

// Execute validates query against the handle's dialect, then runs it racing
// a timer of timeout. Errors are *apperrors.QueryError.
//
// When the timer wins the statement's context is cancelled, but the server
// may still finish it: a Timeout means the outcome is unknown, not that the
// statement did not happen.
func (e *QueryExecutor) Execute(ctx context.Context, h *Handle, query string, timeout time.Duration) (*models.ResultSet, error) {
	if h == nil {
		return nil, fmt.Errorf("execute: %w", apperrors.ErrHandleClosed)
	}
	dialect := h.Dialect()

	if v := sqlcheck.Check(query, dialect); v != nil {
		e.logger.Warn("Rejected unsafe statement",
			zap.String("handle_id", h.ID().String()),
			zap.String("rule", v.Rule),
			zap.String("sql", logging.SanitizeQuery(query)))
		return nil, &apperrors.QueryError{
			Kind:    apperrors.QueryUnsafe,
			Dialect: string(dialect),
			Message: v.Error(),
			SQL:     logging.SanitizeQuery(query),
		}
	}

	return e.run(ctx, h, query, timeout)
}

// run executes query without the safety gate. Catalog queries built by
// this codebase go through here.
func (e *QueryExecutor) run(ctx context.Context, h *Handle, query string, timeout time.Duration) (*models.ResultSet, error) {
	dialect := h.Dialect()
	provider, err := e.providers.Provider(dialect)
	if err != nil {
		return nil, &apperrors.QueryError{
			Kind:    apperrors.QueryUnknown,
			Dialect: string(dialect),
			Message: err.Error(),
			SQL:     logging.SanitizeQuery(query),
			Cause:   err,
		}
	}

	query = sqlcheck.StripTrailingSeparator(query)
	if sqlcheck.HasMultipleStatements(query) {
		e.logger.Debug("Statement contains multiple separators; sent as one batch",
			zap.String("sql", logging.SanitizeQuery(query)))
	}

	if timeout <= 0 {
		timeout = e.defaultTimeout
	}

	queryCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan queryOutcome, 1)
	go func() {
		rs, err := provider.ExecuteQuery(queryCtx, h, query)
		done <- queryOutcome{rs: rs, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	start := time.Now()
	select {
	case out := <-done:
		if out.err != nil {
			queryErr := provider.Errors().QueryError(out.err, query)
			e.logger.Debug("Query failed",
				zap.String("handle_id", h.ID().String()),
				zap.String("kind", string(queryErr.Kind)),
				zap.String("code", queryErr.Code),
				zap.Duration("elapsed", time.Since(start)))
			return nil, queryErr
		}
		if out.rs == nil {
			out.rs = &models.ResultSet{Columns: []string{}, Rows: []models.Row{}}
		}
		return out.rs, nil
	case <-timer.C:
		return nil, e.timeoutError(h, query, fmt.Sprintf("query exceeded %s; it may still be running on the server", timeout))
	case <-ctx.Done():
		return nil, e.timeoutError(h, query, fmt.Sprintf("query abandoned: %v; it may still be running on the server", ctx.Err()))
	}
}

func (e *QueryExecutor) timeoutError(h *Handle, query, msg string) *apperrors.QueryError {
	e.logger.Warn("Query timed out",
		zap.String("handle_id", h.ID().String()),
		zap.String("sql", logging.SanitizeQuery(query)))
	return &apperrors.QueryError{
		Kind:    apperrors.QueryTimeout,
		Dialect: string(h.Dialect()),
		Message: msg,
		SQL:     logging.SanitizeQuery(query),
	}
}

// Querier binds the executor to a handle for catalog use. Catalog statements
// skip the safety gate; they are built here, not by the translator.
func (e *QueryExecutor) Querier(h *Handle) Querier {
	return &handleQuerier{executor: e, handle: h}
}

type handleQuerier struct {
	executor *QueryExecutor
	handle   *Handle
}

func (q *handleQuerier) Query(ctx context.Context, query string, timeout time.Duration) (*models.ResultSet, error) {
	if timeout <= 0 {
		timeout = q.executor.catalogTimeout
	}
	return q.executor.run(ctx, q.handle, query, timeout)
}
