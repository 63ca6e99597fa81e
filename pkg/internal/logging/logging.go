package logging

import (
	"log/slog"
)

const (
	ComponentKey = "component"
	ErrorKey     = "error"
)

// Child returns a new logger with the given component name added to the logger attrs.
func Child(logger *slog.Logger, component string) *slog.Logger {
	return DefaultIfNil(logger).With(
		slog.String(ComponentKey, component),
	)
}

func Error(err error) slog.Attr {
	return slog.String(ErrorKey, err.Error())
}

// Discard returns a logger that drops everything. Used as the library default
// so that embedding applications opt in to log output.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// DefaultIfNil returns a discarding logger if the given logger is nil.
func DefaultIfNil(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return Discard()
	}
	return logger
}
