package log

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var debug bool

// Logger is a global interface for phonograph loggers
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
}

func init() {
	var err error
	debug, err = strconv.ParseBool(os.Getenv("PHONOGRAPH_DEBUG"))
	if err != nil {
		debug = false
	}
}

// GetLogger returns a new logger instance
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Fields are structured fields attached to log entries.
type Fields = logrus.Fields

type fieldLogger interface {
	WithFields(logrus.Fields) *logrus.Entry
}

// WithFields returns a logger which attaches fields to every entry. Loggers
// without field support are returned as is.
func WithFields(l Logger, fields Fields) Logger {
	if fl, ok := l.(fieldLogger); ok {
		return fl.WithFields(fields)
	}
	return l
}

// Component returns a logger which tags every entry with component name.
func Component(l *logrus.Logger, name string) Logger {
	return l.WithField("component", name)
}

type silentLogger struct{}

func (silentLogger) Debug(args ...interface{}) {}

func (silentLogger) Info(args ...interface{}) {}

func (silentLogger) Warn(args ...interface{}) {}

// Silent is a logger which discards everything.
var Silent Logger = silentLogger{}
