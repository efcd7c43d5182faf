package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
)

// InitSentry enables error capture when a DSN is configured; with an empty
// DSN the gateway runs without Sentry.
func InitSentry(dsn, environment string) error {
	if dsn == "" {
		return nil
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		AttachStacktrace: true,
	})
}

// FlushSentry drains buffered events before shutdown
func FlushSentry() {
	sentry.Flush(2 * time.Second)
}

// CaptureError reports an error with request context attached
func CaptureError(err error, path, class string) {
	if err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("path", path)
		scope.SetTag("route_class", class)
		sentry.CaptureException(err)
	})
}
