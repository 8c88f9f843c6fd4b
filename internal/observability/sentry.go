// Package observability wires Sentry error reporting.
package observability

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry initialises the Sentry SDK. An empty dsn disables reporting and
// returns a no-op flush func, so callers can defer the result unconditionally.
func InitSentry(dsn, environment string) (flush func(), err error) {
	if dsn == "" {
		return func() {}, nil
	}

	err = sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
	})
	if err != nil {
		return nil, fmt.Errorf("observability: init sentry: %w", err)
	}

	return func() { sentry.Flush(2 * time.Second) }, nil
}

// CaptureErr forwards err to Sentry when the SDK is initialised.
func CaptureErr(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}
