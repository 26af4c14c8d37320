// Package telemetry provides opt-in error reporting through Sentry.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/screener/screener-go/internal/errors"
	"github.com/screener/screener-go/internal/logging"
)

// InitSentry initializes the Sentry SDK with privacy-compliant settings and
// installs the reporter hook in the errors package. Reporting is strictly
// opt-in; with enabled=false this is a no-op.
func InitSentry(enabled bool, dsn, version string) error {
	if !enabled {
		return nil
	}
	if dsn == "" {
		return errors.NewStd("sentry enabled but no DSN configured")
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "", // prevent hostname leakage
		Release:          fmt.Sprintf("screener-go@%s", version),
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			event.User = sentry.User{}
			event.ServerName = ""
			return event
		},
	})
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}

	errors.SetTelemetryReporter(&sentryReporter{})
	logging.ForService("telemetry").Info("sentry error reporting enabled")
	return nil
}

// Shutdown flushes pending events and disables the reporter hook.
func Shutdown() {
	errors.SetTelemetryReporter(nil)
	sentry.Flush(2 * time.Second)
}

type sentryReporter struct{}

func (r *sentryReporter) ReportError(ee *errors.EnhancedError) {
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.Component)
		scope.SetTag("category", ee.GetCategory())
		for k, v := range ee.GetContext() {
			scope.SetExtra(k, v)
		}
		sentry.CaptureException(ee.Err)
	})
}
