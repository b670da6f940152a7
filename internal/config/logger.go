package config

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger returns a JSON logrus logger writing to stdout at level.
func NewLogger(level string) *logrus.Logger {
	return newLogger(os.Stdout, level)
}

func newLogger(out io.Writer, level string) *logrus.Logger {
	logg := logrus.New()
	logg.SetFormatter(&logrus.JSONFormatter{})
	logg.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logg.SetLevel(lvl)
	return logg
}

func LogError(logger logrus.FieldLogger, moduleName string, funcName string, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   moduleName,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
