package utils

import (
	"io"
	"log/slog"
)

// NopLogger discards everything; used where no logger was injected.
func NopLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }
