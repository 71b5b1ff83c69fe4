// internal/config/logging.go
package config

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// ConfigureLogging sets up the global logrus logger. Production always logs
// JSON so entries can be shipped as structured records.
func (c *Config) ConfigureLogging() {
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if c.Environment == "production" || strings.EqualFold(c.Log.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}
