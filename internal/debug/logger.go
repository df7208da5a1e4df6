package debug

import (
	"log"
	"os"
)

// Logger writes engine diagnostics (skipped effects, seed choices, event and
// arc transitions) to a file when enabled. A disabled logger is safe to call
// unconditionally, so core components never gate their log lines.
type Logger struct {
	enabled bool
}

func NewLogger(enabled bool) *Logger {
	return NewLoggerWithFile(enabled, "debug.log")
}

func NewLoggerWithFile(enabled bool, path string) *Logger {
	if enabled {
		logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err == nil {
			log.SetOutput(logFile)
		}
		log.Printf("=== DEBUG MODE ENABLED ===")
	}

	return &Logger{enabled: enabled}
}

func (d *Logger) Enabled() bool {
	return d != nil && d.enabled
}

func (d *Logger) Printf(format string, args ...interface{}) {
	if d.Enabled() {
		log.Printf(format, args...)
	}
}

func (d *Logger) Println(args ...interface{}) {
	if d.Enabled() {
		log.Println(args...)
	}
}
