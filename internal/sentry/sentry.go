// Package sentry covers the CLI's top-level best-effort error reporting:
// a fatal setup error returned from cmd.Execute, or a panic that survives
// all the way to main. Per-test Error::Bug reporting is a separate concern
// already owned by internal/ci's Sink, scoped to one test's path; this
// package only ever sees the process as a whole.
// Grounded on the teacher's apps/cli/internal/sentry package, trimmed to
// what a library embedder actually needs (no build-time-injected DSN, no
// BeforeSend/IgnoreErrors CLI noise filtering).
package sentry

import (
	"regexp"
	"time"

	"github.com/getsentry/sentry-go"
)

const flushTimeout = 2 * time.Second

var (
	homePathPattern = regexp.MustCompile(`(?i)(/home/|/Users/|C:\\Users\\)([^/\\:]+)`)
	emailPattern    = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// Init initializes Sentry with dsn and returns a cleanup function to defer.
// An empty dsn disables reporting entirely: Init becomes a no-op, and every
// other function in this package becomes a no-op along with it.
func Init(dsn, version string) func() {
	if dsn == "" {
		return func() {}
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Release:          "ui-test@" + version,
		AttachStacktrace: true,
		SampleRate:       1.0,
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			scrubEvent(event)
			return event
		},
	})
	if err != nil {
		return func() {}
	}
	return func() { sentry.Flush(flushTimeout) }
}

// CaptureError reports a fatal top-level error. Safe to call whether or
// not Init ran, and safe to call with nil.
func CaptureError(err error) {
	if err == nil {
		return
	}
	sentry.CaptureException(err)
}

// RecoverAndPanic reports a recovered panic to Sentry, then re-panics so the
// process still exits the way an unhandled panic normally would.
func RecoverAndPanic() {
	if r := recover(); r != nil {
		sentry.CurrentHub().Recover(r)
		sentry.Flush(flushTimeout)
		panic(r)
	}
}

func scrubPII(s string) string {
	s = homePathPattern.ReplaceAllString(s, "${1}[user]")
	s = emailPattern.ReplaceAllString(s, "[email]")
	return s
}

func scrubEvent(event *sentry.Event) {
	event.Message = scrubPII(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = scrubPII(event.Exception[i].Value)
	}
	for i := range event.Breadcrumbs {
		event.Breadcrumbs[i].Message = scrubPII(event.Breadcrumbs[i].Message)
	}
}
