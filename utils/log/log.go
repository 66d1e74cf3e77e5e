package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// global accessible logger
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// This init function is only for testing cases, where the entry point is not
// main function. Unit test will fail with nil pointer dereference if we don't
// init here.
func init() {
	InitLogger("pulsefeed")
}

// InitLogger sets up the process-wide logrus entry. Logs go to stderr in text
// form for development and JSON in production, keyed off PULSEFEED_ENV.
func InitLogger(service string) {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)

	env := os.Getenv("PULSEFEED_ENV")
	if env == "" {
		env = "dev"
	}
	if env == "prod" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	Log = logger.WithFields(
		logrus.Fields{"service": service, "is_development": env != "prod"},
	)
}
