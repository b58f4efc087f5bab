package nlog

import (
	"log"
	"os"
)

type Logger interface {
	Logf(format string, v ...any)
}

type subsystemLogger struct {
	logger *log.Logger
}

func (s *subsystemLogger) Logf(format string, v ...any) {
	s.logger.Printf(format, v...)
}

// NewSubsystem returns a logger prefixed with the subsystem name. Every
// component receives its own so the shared-process log stays attributable.
func NewSubsystem(name string) Logger {
	return &subsystemLogger{log.New(os.Stderr, "["+name+"] ", log.Ldate|log.Ltime)}
}

type nilLogger struct{}

func (nilLogger) Logf(string, ...any) {}

// Discard is used where logging is disabled, mostly in tests.
func Discard() Logger { return nilLogger{} }
