// Package logging adapts the teacher's hand-rolled Logger interface to a
// logrus-backed default implementation.
package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface every peer is constructed with. The only
// global logging call in this module is the prometheus/common/log line for a
// failed relt send in internal/transport.
type Logger interface {
	Info(v ...interface{})
	Infof(format string, v ...interface{})
	Warn(v ...interface{})
	Warnf(format string, v ...interface{})
	Error(v ...interface{})
	Errorf(format string, v ...interface{})
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})
	Fatal(v ...interface{})
	Fatalf(format string, v ...interface{})
	ToggleDebug(value bool) bool
}

// DefaultLogger wraps a *logrus.Logger to satisfy Logger.
type DefaultLogger struct {
	*logrus.Logger
}

// NewDefaultLogger returns a Logger writing to stderr at info level.
func NewDefaultLogger() *DefaultLogger {
	l := logrus.New()
	l.Out = os.Stderr
	l.SetLevel(logrus.InfoLevel)
	return &DefaultLogger{Logger: l}
}

// ToggleDebug flips the logger between debug and info level, returning the
// new debug state.
func (l *DefaultLogger) ToggleDebug(value bool) bool {
	if value {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return value
}
