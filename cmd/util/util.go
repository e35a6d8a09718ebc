package util

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/dnmp/dnmp/pkg/errors"
)

// Mocked out for unit testing.
var (
	exit             = os.Exit
	stderr io.Writer = os.Stderr
)

// HandleFatalError prints the error and exits. Errors that are meant for the
// user are printed without the context that was added while propagating
// them.
func HandleFatalError(err error) {
	log.WithError(err).Debug("Fatal error")
	fmt.Fprintln(stderr, FormatError(err))
	exit(1)
}

// FormatError returns the message that should be shown to the user for `err`.
func FormatError(err error) string {
	if friendlyErr, ok := errors.RootCause(err).(errors.FriendlyError); ok {
		return friendlyErr.FriendlyMessage()
	}
	return fmt.Sprintf("Error: %s", err)
}

// HandlePanic logs panics before letting them crash the process. It must be
// deferred.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("panic", r).Error("Unexpected crash")
		panic(r)
	}
}
