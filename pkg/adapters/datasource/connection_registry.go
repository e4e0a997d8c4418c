package datasource

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// ConnectionRegistry caches open handles by username@connectionString so
// repeated requests against one target reuse one session. Handles are
// reference counted: every Connect must be paired with a Close.
type ConnectionRegistry struct {
	providers ProviderLookup
	logger    *zap.Logger

	mu       sync.Mutex
	entries  map[string]*registryEntry // key: ConnectionConfig.Identity()
	uncached map[*Handle]Provider
	closed   bool
}

// registryEntry is one cache slot. mu serializes the provider connect for
// its key. handle is written with both mu and the registry lock held, so
// either lock is enough to read it.
type registryEntry struct {
	mu          sync.Mutex
	handle      *Handle
	provider    Provider
	refs        int
	fingerprint [sha256.Size]byte
}

// NewConnectionRegistry creates an empty registry.
func NewConnectionRegistry(providers ProviderLookup, logger *zap.Logger) *ConnectionRegistry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionRegistry{
		providers: providers,
		logger:    logger.Named("registry"),
		entries:   make(map[string]*registryEntry),
		uncached:  make(map[*Handle]Provider),
	}
}

// Connect returns the cached handle for cfg's identity or opens a new one.
// Concurrent callers for one identity share a single provider connect;
// callers for different identities never wait on each other. A failed
// connect leaves nothing cached.
func (r *ConnectionRegistry) Connect(ctx context.Context, cfg *models.ConnectionConfig) (*Handle, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidConfig, err)
	}
	provider, err := r.providers.Provider(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	key := cfg.Identity()
	fingerprint := sha256.Sum256([]byte(cfg.Password))

	// Reserve the slot so a concurrent Close or failure cannot drop it under us.
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, apperrors.ErrRegistryClosed
	}
	entry, ok := r.entries[key]
	if !ok {
		entry = &registryEntry{provider: provider}
		r.entries[key] = entry
	}
	entry.refs++
	r.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.handle != nil && !entry.handle.IsClosed() {
		if entry.fingerprint != fingerprint {
			r.release(key, entry)
			r.logger.Debug("Credential mismatch on cached identity; opening uncached connection",
				zap.String("identity", entry.handle.LogIdentity()))
			return r.connectUncached(ctx, provider, cfg)
		}
		r.logger.Debug("Reusing cached connection",
			zap.String("handle_id", entry.handle.ID().String()),
			zap.String("dialect", string(cfg.Dialect)))
		return entry.handle, nil
	}

	h, err := provider.Connect(ctx, cfg)
	if err != nil {
		r.release(key, entry)
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = provider.CloseConnection(ctx, h)
		return nil, apperrors.ErrRegistryClosed
	}
	entry.handle = h
	entry.provider = provider
	entry.fingerprint = fingerprint
	r.mu.Unlock()

	r.logger.Info("Opened connection",
		zap.String("handle_id", h.ID().String()),
		zap.String("dialect", string(cfg.Dialect)),
		zap.String("identity", h.LogIdentity()),
		zap.String("variant", h.Variant()))
	return h, nil
}

// release drops a reservation that did not end with a usable cached handle.
func (r *ConnectionRegistry) release(key string, entry *registryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry.refs--
	if entry.refs <= 0 && r.entries[key] == entry {
		delete(r.entries, key)
	}
}

func (r *ConnectionRegistry) connectUncached(ctx context.Context, provider Provider, cfg *models.ConnectionConfig) (*Handle, error) {
	h, err := provider.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		_ = provider.CloseConnection(ctx, h)
		return nil, apperrors.ErrRegistryClosed
	}
	r.uncached[h] = provider
	return h, nil
}

// Close releases one reference to h. The session is closed when the last
// reference goes away. Closing an already-released handle is a no-op.
func (r *ConnectionRegistry) Close(ctx context.Context, h *Handle) error {
	if h == nil {
		return nil
	}

	var provider Provider
	r.mu.Lock()
	if entry, ok := r.entries[h.Identity()]; ok && entry.handle == h {
		entry.refs--
		if entry.refs > 0 {
			r.mu.Unlock()
			return nil
		}
		delete(r.entries, h.Identity())
		provider = entry.provider
	} else if p, ok := r.uncached[h]; ok {
		delete(r.uncached, h)
		provider = p
	}
	r.mu.Unlock()

	if provider == nil {
		return nil
	}

	if err := provider.CloseConnection(ctx, h); err != nil {
		r.logger.Warn("Failed to close connection",
			zap.String("handle_id", h.ID().String()),
			zap.Error(err))
		return err
	}
	r.logger.Debug("Closed connection",
		zap.String("handle_id", h.ID().String()),
		zap.Duration("open_for", time.Since(h.OpenedAt())))
	return nil
}

// Shutdown closes every handle regardless of references. Later Connect
// calls fail with ErrRegistryClosed. Safe to call more than once.
func (r *ConnectionRegistry) Shutdown(ctx context.Context) error {
	type pending struct {
		handle   *Handle
		provider Provider
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	toClose := make([]pending, 0, len(r.entries)+len(r.uncached))
	for _, entry := range r.entries {
		if entry.handle != nil {
			toClose = append(toClose, pending{entry.handle, entry.provider})
		}
	}
	for h, p := range r.uncached {
		toClose = append(toClose, pending{h, p})
	}
	r.entries = make(map[string]*registryEntry)
	r.uncached = make(map[*Handle]Provider)
	r.mu.Unlock()

	var errs []error
	for _, p := range toClose {
		if err := p.provider.CloseConnection(ctx, p.handle); err != nil {
			errs = append(errs, err)
		}
	}
	r.logger.Info("Connection registry shut down", zap.Int("closed", len(toClose)))
	return errors.Join(errs...)
}

// Stats returns a snapshot of the registry. Safe to call concurrently.
func (r *ConnectionRegistry) Stats() ConnectionStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	stats := ConnectionStats{
		ConnectionsByDialect: make(map[string]int),
		Uncached:             len(r.uncached),
	}
	for _, entry := range r.entries {
		if entry.handle == nil {
			continue
		}
		stats.TotalConnections++
		stats.ActiveReferences += entry.refs
		stats.ConnectionsByDialect[string(entry.handle.Dialect())]++
		if open := int(now.Sub(entry.handle.OpenedAt()).Seconds()); open > stats.OldestOpenSeconds {
			stats.OldestOpenSeconds = open
		}
	}
	return stats
}

// ConnectionStats contains statistics about the registry state.
type ConnectionStats struct {
	TotalConnections     int            `json:"total_connections"`
	ConnectionsByDialect map[string]int `json:"connections_by_dialect"`
	ActiveReferences     int            `json:"active_references"`
	Uncached             int            `json:"uncached"`
	OldestOpenSeconds    int            `json:"oldest_open_seconds"`
}
