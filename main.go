package main

import (
	"fmt"
	"os"

	"github.com/michaelciraci/ui-test/cmd"
	"github.com/michaelciraci/ui-test/internal/sentry"
)

func main() {
	os.Exit(run())
}

// run wires the cobra command tree and maps its outcome to a process exit
// code, the same defer-order-matters pattern the teacher's go-cli main.go
// uses: RecoverAndPanic must be deferred first so it runs last, after the
// Sentry cleanup has had a chance to flush.
func run() int {
	defer sentry.RecoverAndPanic()
	cleanup := sentry.Init(os.Getenv("UITEST_SENTRY_DSN"), cmd.Version)
	defer cleanup()

	if err := cmd.Execute(); err != nil {
		if exitErr, ok := err.(interface{ ExitCode() int }); ok {
			return exitErr.ExitCode()
		}
		sentry.CaptureError(err)
		fmt.Fprintln(os.Stderr, "ui-test: "+err.Error())
		return 1
	}
	return 0
}
