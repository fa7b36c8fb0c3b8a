package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
)

const LogFileName = "fxterm.log"

// New returns a logger writing logfmt-style lines to w. Unknown levels fall
// back to info.
func New(w io.Writer, level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}

	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "fxterm",
		Level:           lvl,
		Formatter:       log.LogfmtFormatter,
	})
}

// OpenFile appends to the log file inside dataDir. The terminal belongs to the
// TUI while it runs, so logs never go to stdout.
func OpenFile(dataDir, level string) (*log.Logger, io.Closer, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(dataDir, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return New(f, level), f, nil
}

func Nop() *log.Logger {
	return log.New(io.Discard)
}
