// Package log carries a logrus entry on the context so that fields added by a
// caller (operation, DID, contract) follow a request through the SDK.
package log

import (
	"context"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

var rootLogger = logrus.NewEntry(logrus.StandardLogger())

// L returns the logger for ctx, or the root logger if none is attached.
var L = loggerFromContext

type ctxLogKey struct{}

// Config selects the log level and output format.
type Config struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// InitConfig applies level and format to the standard logger.
func InitConfig(conf Config) {
	SetLevel(conf.Level)
	SetFormat(conf.Format)
}

// WithLogger adds the specified logger to the context.
func WithLogger(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxLogKey{}, logger)
}

// WithLogField adds the specified field to the logger in the context.
func WithLogField(ctx context.Context, key, value string) context.Context {
	if len(value) > 61 {
		value = value[0:61] + "..."
	}
	return WithLogger(ctx, loggerFromContext(ctx).WithField(key, value))
}

func loggerFromContext(ctx context.Context) *logrus.Entry {
	if ctx == nil {
		return rootLogger
	}
	logger, ok := ctx.Value(ctxLogKey{}).(*logrus.Entry)
	if !ok {
		return rootLogger
	}
	return logger
}

// IsDebugEnabled reports whether debug logging is on.
func IsDebugEnabled() bool {
	return logrus.IsLevelEnabled(logrus.DebugLevel)
}

// SetLevel sets the level of the standard logger. Unknown levels mean info.
func SetLevel(level string) {
	var l logrus.Level
	switch strings.ToLower(level) {
	case "error":
		l = logrus.ErrorLevel
	case "warn", "warning":
		l = logrus.WarnLevel
	case "debug":
		l = logrus.DebugLevel
	case "trace":
		l = logrus.TraceLevel
	default:
		l = logrus.InfoLevel
	}
	logrus.SetLevel(l)
}

// SetFormat switches between "json" and the default text output.
func SetFormat(format string) {
	switch format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

// SetOutput redirects the standard logger.
func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}
