// Package log provides the loggers used by the cras packages.
package log

import (
	"io"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var debug bool

func init() {
	var err error
	debug, err = strconv.ParseBool(os.Getenv("CRAS_DEBUG"))
	if err != nil {
		debug = false
	}
}

// GetLogger returns a new logger instance. It logs debug messages if
// CRAS_DEBUG is set to a true value.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
