package datasource

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

type fakeSession struct {
	mu      sync.Mutex
	queries []string
	respond func(ctx context.Context, query string) (*models.ResultSet, error)
	closed  int
}

func (s *fakeSession) Query(ctx context.Context, query string) (*models.ResultSet, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	respond := s.respond
	s.mu.Unlock()

	if respond == nil {
		return &models.ResultSet{Columns: []string{"?column?"}, Rows: []models.Row{{"?column?": int64(1)}}}, nil
	}
	return respond(ctx, query)
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed++
	return nil
}

func (s *fakeSession) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// fakeDriverError carries a native code the way driver errors do.
type fakeDriverError struct {
	Code string
	Msg  string
}

func (e *fakeDriverError) Error() string { return e.Msg }

var fakeErrors = &ErrorTable{
	Dialect: models.DialectPostgres,
	Extract: func(err error) (string, bool) {
		var driverErr *fakeDriverError
		if errors.As(err, &driverErr) {
			return driverErr.Code, true
		}
		return "", false
	},
	Connection: map[string]apperrors.ConnectionErrorKind{
		"28P01": apperrors.ConnAuthFailure,
		"3D000": apperrors.ConnDatabaseNotFound,
	},
	Query: map[string]apperrors.QueryErrorKind{
		"42601": apperrors.QuerySyntax,
		"42P01": apperrors.QueryUnknownObject,
	},
}

type fakeProvider struct {
	dialect models.Dialect
	delay   time.Duration

	// newSession is called once per Connect; nil means a default fakeSession.
	newSession func(cfg *models.ConnectionConfig) (Session, error)

	connects atomic.Int32
	closes   atomic.Int32
}

func newFakeProvider(dialect models.Dialect) *fakeProvider {
	return &fakeProvider{dialect: dialect}
}

func (p *fakeProvider) Dialect() models.Dialect { return p.dialect }

func (p *fakeProvider) Connect(ctx context.Context, cfg *models.ConnectionConfig) (*Handle, error) {
	n := p.connects.Add(1)
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return nil, p.Errors().ConnectionError(ctx.Err())
		}
	}
	var (
		session Session = &fakeSession{}
		err     error
	)
	if p.newSession != nil {
		session, err = p.newSession(cfg)
	}
	if err != nil {
		return nil, p.Errors().ConnectionError(err, cfg.Password)
	}
	return NewHandle(p.dialect, cfg, "attempt-"+strconv.Itoa(int(n)), session), nil
}

func (p *fakeProvider) ExecuteQuery(ctx context.Context, h *Handle, query string) (*models.ResultSet, error) {
	return RunOnHandle(ctx, p.dialect, h, query)
}

func (p *fakeProvider) CloseConnection(_ context.Context, h *Handle) error {
	p.closes.Add(1)
	return h.CloseSession()
}

func (p *fakeProvider) CurrentUser(context.Context, *Handle) (string, error) {
	return "tester", nil
}

func (p *fakeProvider) Errors() *ErrorTable {
	t := *fakeErrors
	t.Dialect = p.dialect
	return &t
}

type fakeLookup map[models.Dialect]Provider

func (l fakeLookup) Provider(d models.Dialect) (Provider, error) {
	if p, ok := l[d]; ok {
		return p, nil
	}
	return nil, apperrors.ErrUnknownDialect
}

func testConfig(user, password string) *models.ConnectionConfig {
	return &models.ConnectionConfig{
		Dialect:  models.DialectPostgres,
		Username: user,
		Password: password,
		Host:     "db.internal",
		Database: "sales",
	}
}
