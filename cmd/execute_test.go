package cmd

import (
	"context"
	"log/slog"
	"os"
	"testing"
)

func TestInitLoggerLevels(t *testing.T) {
	ctx := context.Background()

	t.Run("default", func(t *testing.T) {
		t.Setenv("DEBUG", "")
		logger := initLogger()
		if !logger.Enabled(ctx, slog.LevelInfo) {
			t.Error("info level disabled by default")
		}
		if logger.Enabled(ctx, slog.LevelDebug) {
			t.Error("debug level enabled without DEBUG")
		}
	})

	t.Run("debug env", func(t *testing.T) {
		t.Setenv("DEBUG", "1")
		logger := initLogger()
		if !logger.Enabled(ctx, slog.LevelDebug) {
			t.Error("DEBUG env did not lower the level")
		}
	})
}

func TestExecuteVersion(t *testing.T) {
	orig := os.Args
	defer func() { os.Args = orig }()

	os.Args = []string{"neuralos", "--version"}
	if err := Execute(); err != nil {
		t.Fatalf("Execute --version: %v", err)
	}

	os.Args = []string{"neuralos", "help"}
	if err := Execute(); err != nil {
		t.Fatalf("Execute help: %v", err)
	}
}
