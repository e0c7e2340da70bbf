//go:build linux

package util

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/coreos/go-systemd/v22/journal"
)

// journaldWriter routes the stdlib logger into the systemd journal.
type journaldWriter struct{}

func (w *journaldWriter) Write(p []byte) (n int, err error) {
	// journald adds its own trailing newline
	msg := string(p)
	if len(msg) > 0 && msg[len(msg)-1] == '\n' {
		msg = msg[:len(msg)-1]
	}

	err = journal.Send(msg, journal.PriInfo, map[string]string{
		"SYSLOG_IDENTIFIER": Name,
	})
	if err != nil {
		return fmt.Fprintf(os.Stderr, "%s", p)
	}
	return len(p), nil
}

var logWriter io.Writer = os.Stderr

// GetLogWriter returns the current log writer (for use by other packages)
func GetLogWriter() io.Writer {
	return logWriter
}

// SetupLogging routes logs to journald when requested and available,
// otherwise leaves the default stderr logger in place.
func SetupLogging(withJournald bool) {
	if !withJournald {
		return
	}
	if !journal.Enabled() {
		log.Println("Warning: Journald not available on this system; using standard logging")
		return
	}

	writer := &journaldWriter{}
	logWriter = writer
	log.SetOutput(writer)
	log.SetFlags(0) // journald timestamps
	log.Println("Logging initialized with journald support")
}
