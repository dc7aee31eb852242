// Package logging provides the structured, per-component loggers shared by
// the Schema Reader, Plan Builder, Mutation Compiler and Chunk Transport.
package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Config mirrors config.LoggingConfig without importing the config package,
// keeping logging free to be initialized before config validation runs.
type Config struct {
	Level  string
	Format string
}

var root = logrus.New()

// Init configures the root logger's level and formatter from ambient config.
// Called once at startup; components obtain their own entry via For.
func Init(cfg Config) {
	root.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	root.SetLevel(level)

	if strings.ToLower(cfg.Format) == "json" {
		root.SetFormatter(&logrus.JSONFormatter{})
	} else {
		root.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// For returns a logger entry tagged with the given component name, e.g.
// logging.For("schema-reader").WithField("table", name).Info("loaded").
func For(component string) *logrus.Entry {
	return root.WithField("component", component)
}
