package testutil

import (
	"io"
	"log"
	"os"
	"testing"
)

// TestLogger returns a logger tagged with the test name. Output is only
// shown with -v since room actors and the janitor log from their own
// goroutines.
func TestLogger(t *testing.T) *log.Logger {
	var w io.Writer = io.Discard
	if testing.Verbose() {
		w = os.Stdout
	}

	logger := log.New(w, "["+t.Name()+"] ", log.LstdFlags|log.Lmsgprefix)
	t.Cleanup(func() {
		logger.SetOutput(io.Discard)
	})
	return logger
}
