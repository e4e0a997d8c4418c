package datasource

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// ConnectAttempt is one connection variant: a named way of opening a session.
type ConnectAttempt struct {
	Name string
	Open func(ctx context.Context) (Session, error)
}

// ConnectFirst tries attempts in order and returns the first session that
// opens and answers verifySQL within perAttempt. A session that opens but
// fails verification is closed before moving on. The last error is returned
// when every variant fails.
func ConnectFirst(ctx context.Context, attempts []ConnectAttempt, perAttempt time.Duration, verifySQL string, logger *zap.Logger) (Session, string, error) {
	if len(attempts) == 0 {
		return nil, "", errors.New("no connection variants configured")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if perAttempt <= 0 {
		perAttempt = DefaultAttemptTimeout
	}

	var lastErr error
	for _, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			break
		}

		session, err := tryAttempt(ctx, attempt, perAttempt, verifySQL)
		if err == nil {
			logger.Debug("Connection variant succeeded", zap.String("variant", attempt.Name))
			return session, attempt.Name, nil
		}
		logger.Debug("Connection variant failed",
			zap.String("variant", attempt.Name),
			zap.Error(err))
		lastErr = err
	}
	return nil, "", lastErr
}

func tryAttempt(ctx context.Context, attempt ConnectAttempt, perAttempt time.Duration, verifySQL string) (Session, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, perAttempt)
	defer cancel()

	session, err := attempt.Open(attemptCtx)
	if err != nil {
		return nil, err
	}
	if verifySQL == "" {
		return session, nil
	}
	if _, err := session.Query(attemptCtx, verifySQL); err != nil {
		_ = session.Close()
		return nil, fmt.Errorf("verify %s: %w", attempt.Name, err)
	}
	return session, nil
}

// Endpoint is a resolved network target.
type Endpoint struct {
	Host     string
	Port     int
	Database string
}

// ResolveEndpoint returns where cfg points. Host/Port/Database win; when only
// a connection string in host[:port][/database] form is given it is split.
// resolveHost is applied to the host (nil leaves it unchanged).
func ResolveEndpoint(cfg *models.ConnectionConfig, resolveHost func(string) string) Endpoint {
	ep := Endpoint{Host: cfg.Host, Port: cfg.EffectivePort(), Database: cfg.Database}
	if ep.Host == "" && cfg.ConnectionString != "" {
		target := strings.TrimSpace(cfg.ConnectionString)
		if i := strings.Index(target, "://"); i >= 0 {
			target = target[i+3:]
		}
		if i := strings.Index(target, "/"); i >= 0 {
			if ep.Database == "" {
				ep.Database = target[i+1:]
			}
			target = target[:i]
		}
		if host, port, err := net.SplitHostPort(target); err == nil {
			ep.Host = host
			if p, err := strconv.Atoi(port); err == nil && cfg.Port == 0 {
				ep.Port = p
			}
		} else {
			ep.Host = target
		}
	}
	if resolveHost != nil {
		ep.Host = resolveHost(ep.Host)
	}
	return ep
}
