package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// ErrorReportingConfig configures Sentry.
type ErrorReportingConfig struct {
	DSN         string
	Environment string
	Release     string
}

// InitErrorReporting enables Sentry when a DSN is configured. The returned
// function flushes buffered events and is safe to call when disabled.
func InitErrorReporting(cfg ErrorReportingConfig) (func(time.Duration), error) {
	if cfg.DSN == "" {
		return func(time.Duration) {}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		AttachStacktrace: true,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}
	return func(timeout time.Duration) { sentry.Flush(timeout) }, nil
}

// CaptureError reports err to Sentry with request tags. It is a no-op until
// InitErrorReporting succeeds.
func CaptureError(ctx context.Context, err error, tags map[string]string) {
	if err == nil || sentry.CurrentHub().Client() == nil {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}
