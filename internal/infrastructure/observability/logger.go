package observability

import (
	"log/slog"
	"os"
)

// NewLogger builds the JSON logger handed to component constructors.
// Logs go to stderr: the streaming producer owns stdout for event output.
func NewLogger() *slog.Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler)
}

func InitLogger() *slog.Logger {
	logger := NewLogger()
	slog.SetDefault(logger)
	return logger
}
