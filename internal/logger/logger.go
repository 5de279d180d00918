package logger

import (
	"github.com/sirupsen/logrus"
)

// Log is the process-wide structured logger. It is logrus' standard logger, so packages
// outside internal/ that log through the logrus package functions share its level and format.
var Log = logrus.StandardLogger()

// Init configures level and formatter. Production gets JSON, everything else readable text.
func Init(level string, production bool) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)

	if production {
		Log.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	Log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}
