package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Logger is the logging capability injected into the engine at
// construction. The engine never touches process-wide logging state, so
// it stays testable without any global setup.
//
// Built-in implementations:
//   - NopLogger()     — silent, zero overhead (default when none is configured)
//   - NewStdLogger()  — wraps Go's standard log package
//   - NewZapLogger()  — structured JSON output with file rotation
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// NopLogger returns a Logger that discards all output.
func NopLogger() Logger { return nopLogger{} }

type stdLogger struct {
	l     *log.Logger
	debug bool
}

// NewStdLogger returns a Logger backed by Go's standard log package.
// Debug output is emitted only when debug is true.
func NewStdLogger(out io.Writer, debug bool) Logger {
	if out == nil {
		out = os.Stderr
	}
	return &stdLogger{l: log.New(out, "", log.LstdFlags), debug: debug}
}

func (s *stdLogger) emit(level, msg string, kv []interface{}) {
	var b strings.Builder
	b.WriteString(level)
	b.WriteString(" ")
	b.WriteString(msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	if len(kv)%2 != 0 {
		fmt.Fprintf(&b, " %v=?", kv[len(kv)-1])
	}
	s.l.Print(b.String())
}

func (s *stdLogger) Debug(msg string, kv ...interface{}) {
	if s.debug {
		s.emit("DEBUG", msg, kv)
	}
}
func (s *stdLogger) Info(msg string, kv ...interface{})  { s.emit("INFO", msg, kv) }
func (s *stdLogger) Warn(msg string, kv ...interface{})  { s.emit("WARN", msg, kv) }
func (s *stdLogger) Error(msg string, kv ...interface{}) { s.emit("ERROR", msg, kv) }
