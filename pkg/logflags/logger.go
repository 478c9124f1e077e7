package logflags

import (
	"io"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface used by the fpstack packages. Each
// component obtains one from its <Component>Logger function.
type Logger interface {
	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger

	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})
}

// Fields are key/value pairs attached to every line of a Logger.
type Fields map[string]interface{}

// LoggerFactory builds the Logger of a component. out is nil unless Setup
// redirected the logs.
type LoggerFactory func(level logrus.Level, fields Fields, out io.Writer) Logger

var loggerFactory LoggerFactory

// SetLoggerFactory replaces the logrus based default for every Logger
// created afterwards. A nil factory restores the default.
func SetLoggerFactory(lf LoggerFactory) {
	loggerFactory = lf
}

// entry adapts a logrus entry so that the With* methods keep returning
// a Logger.
type entry struct {
	*logrus.Entry
}

func (e entry) WithField(key string, value interface{}) Logger {
	return entry{e.Entry.WithField(key, value)}
}

func (e entry) WithFields(fields Fields) Logger {
	return entry{e.Entry.WithFields(logrus.Fields(fields))}
}

func (e entry) WithError(err error) Logger {
	return entry{e.Entry.WithError(err)}
}
