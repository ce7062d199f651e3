package logger

import (
	"fmt"
	"io"
	"os"
)

// Logger defines the interface for logging throughout the application.
// Different implementations can be used for different contexts (console, silent, etc.)
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// ConsoleLogger writes human-readable logs. Info and Debug go to Out, Error to Err.
// Debug lines are dropped unless Verbose is set.
type ConsoleLogger struct {
	Out     io.Writer
	Err     io.Writer
	Verbose bool
}

func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return &ConsoleLogger{
		Out:     os.Stdout,
		Err:     os.Stderr,
		Verbose: verbose,
	}
}

func (c *ConsoleLogger) Info(msg string, args ...interface{}) {
	fmt.Fprintf(c.Out, "[INFO] "+msg+"\n", args...)
}

func (c *ConsoleLogger) Error(msg string, args ...interface{}) {
	fmt.Fprintf(c.Err, "[ERROR] "+msg+"\n", args...)
}

func (c *ConsoleLogger) Debug(msg string, args ...interface{}) {
	if !c.Verbose {
		return
	}
	fmt.Fprintf(c.Out, "[DEBUG] "+msg+"\n", args...)
}

// SilentLogger discards all log messages.
// Used in TUI and MCP mode, where stdout belongs to the display or the protocol.
type SilentLogger struct{}

func NewSilentLogger() *SilentLogger {
	return &SilentLogger{}
}

func (s *SilentLogger) Info(msg string, args ...interface{})  {}
func (s *SilentLogger) Error(msg string, args ...interface{}) {}
func (s *SilentLogger) Debug(msg string, args ...interface{}) {}

// StderrLogger writes only errors, to stderr. Used when stdout must stay clean.
type StderrLogger struct{}

func NewStderrLogger() *StderrLogger {
	return &StderrLogger{}
}

func (s *StderrLogger) Info(msg string, args ...interface{}) {}

func (s *StderrLogger) Error(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "[ERROR] "+msg+"\n", args...)
}

func (s *StderrLogger) Debug(msg string, args ...interface{}) {}
