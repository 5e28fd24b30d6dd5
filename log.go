package disrnet

import (
	"io"
	"log/slog"
)

// orDiscard substitutes a logger that drops everything for a nil one
func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
