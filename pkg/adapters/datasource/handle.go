package datasource

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// Handle is an open connection tagged with its dialect at creation.
// Nothing downstream inspects the session to work out what it is talking to.
type Handle struct {
	id       uuid.UUID
	dialect  models.Dialect
	identity string // username@connectionString
	username string
	database string
	variant  string // connection variant that succeeded
	session  Session
	openedAt time.Time

	closeOnce sync.Once
	closed    atomic.Bool
	closeErr  error
}

// NewHandle wraps a verified session. Providers call this once per successful connect.
func NewHandle(dialect models.Dialect, cfg *models.ConnectionConfig, variant string, session Session) *Handle {
	return &Handle{
		id:       uuid.New(),
		dialect:  dialect,
		identity: cfg.Identity(),
		username: cfg.Username,
		database: cfg.Database,
		variant:  variant,
		session:  session,
		openedAt: time.Now(),
	}
}

func (h *Handle) ID() uuid.UUID           { return h.id }
func (h *Handle) Dialect() models.Dialect { return h.dialect }
func (h *Handle) Identity() string        { return h.identity }
func (h *Handle) Username() string        { return h.username }
func (h *Handle) Database() string        { return h.database }
func (h *Handle) Variant() string         { return h.variant }
func (h *Handle) OpenedAt() time.Time     { return h.openedAt }
func (h *Handle) IsClosed() bool          { return h.closed.Load() }

// LogIdentity returns the identity with any credentials in the target masked.
func (h *Handle) LogIdentity() string {
	return logging.SanitizeConnectionString(h.identity)
}

// Session returns the live session. Only providers should need it.
func (h *Handle) Session() Session {
	return h.session
}

// CloseSession closes the session exactly once. Providers call it from
// CloseConnection; everything else goes through the registry.
func (h *Handle) CloseSession() error {
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		if h.session != nil {
			h.closeErr = h.session.Close()
		}
	})
	return h.closeErr
}

// RunOnHandle is the shared body of Provider.ExecuteQuery: it refuses
// handles of another dialect or already closed, then queries the session.
func RunOnHandle(ctx context.Context, want models.Dialect, h *Handle, query string) (*models.ResultSet, error) {
	if err := CheckHandle(want, h); err != nil {
		return nil, err
	}
	return h.session.Query(ctx, query)
}

// CheckHandle verifies h is open and tagged with want.
func CheckHandle(want models.Dialect, h *Handle) error {
	if h == nil || h.IsClosed() || h.session == nil {
		return apperrors.ErrHandleClosed
	}
	if h.dialect != want {
		return fmt.Errorf("%s provider given a %s handle", want, h.dialect)
	}
	return nil
}
