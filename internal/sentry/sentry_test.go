package sentry

import "testing"

func TestInitWithEmptyDSNIsNoOp(t *testing.T) {
	cleanup := Init("", "1.0.0")
	if cleanup == nil {
		t.Fatal("Init must always return a non-nil cleanup func")
	}
	cleanup()
}

func TestCaptureErrorToleratesNil(t *testing.T) {
	CaptureError(nil)
}

func TestScrubPIIRedactsHomePathsAndEmails(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"/home/alice/project/main.go", "/home/[user]/project/main.go"},
		{"/Users/bob/code", "/Users/[user]/code"},
		{"contact jane@example.com for help", "contact [email] for help"},
		{"no pii here", "no pii here"},
	}
	for _, c := range cases {
		if got := scrubPII(c.in); got != c.want {
			t.Errorf("scrubPII(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
