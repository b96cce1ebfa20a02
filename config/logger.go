package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the process-wide structured logger. Output is JSON so
// log aggregation can index the fields.
func NewLogger(level string) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)

	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		parsed = logrus.InfoLevel
	}
	log.SetLevel(parsed)
	return log
}
