package commands

import (
	"log/slog"
	"os"
	"time"

	"github.com/introspect-io/insights-client/pkg/insights"
	"github.com/lmittmann/tint"
)

// cliLogger adapts slog to the insights.Logger interface, with colored
// output on the terminal.
type cliLogger struct {
	logger *slog.Logger
}

func newCLILogger(verbose bool) insights.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}

	handler := tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})

	return &cliLogger{logger: slog.New(handler)}
}

func (l *cliLogger) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug(msg, attrs(fields)...)
}

func (l *cliLogger) Info(msg string, fields map[string]interface{}) {
	l.logger.Info(msg, attrs(fields)...)
}

func (l *cliLogger) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn(msg, attrs(fields)...)
}

func (l *cliLogger) Error(msg string, fields map[string]interface{}) {
	l.logger.Error(msg, attrs(fields)...)
}

func attrs(fields map[string]interface{}) []any {
	args := make([]any, 0, len(fields)*2)
	for key, value := range fields {
		args = append(args, key, value)
	}

	return args
}
