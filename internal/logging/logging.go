// Package logging holds the logger shared by the cryptocore packages.
package logging

import (
	goLog "log"
)

type Logger interface {
	Logf(format string, a ...interface{})
}

type dummyLogger struct{}
type stdlibLogger struct{}

func (logger *dummyLogger) Logf(format string, a ...interface{}) {}

func (logger *stdlibLogger) Logf(format string, a ...interface{}) {
	goLog.Printf(format, a...)
}

var log Logger = &dummyLogger{}

// Enables logging to log package.
func EnableStdlib() {
	Set(&stdlibLogger{})
}

// Sets the logger.  Disable logging by passing nil.
func Set(logger Logger) {
	if logger == nil {
		log = &dummyLogger{}
		return
	}
	log = logger
}

// Logs using the current logger.
func Logf(format string, a ...interface{}) {
	log.Logf(format, a...)
}
