// Package cmd contains the command-line entry points. main.go stays a
// minimal shim; all routing and initialization happens here.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/neuralos/neuralos/db"
	"github.com/neuralos/neuralos/internal/config"
	intlog "github.com/neuralos/neuralos/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the main entry point. Special flags are handled before
// full initialization so --version and --help work even when config is
// invalid.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			return printVersionInfo()
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "migrate":
			return runMigrate()
		case "serve":
			return runServe()
		}
	}

	// serve is the default command.
	return runServe()
}

func initLogger() intlog.Logger {
	cfg := intlog.Config{Level: slog.LevelInfo, JSON: true}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
		cfg.JSON = false
	}
	return intlog.New(cfg)
}

// runMigrate applies pending database migrations and exits.
func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	fmt.Println("migrations applied")
	return nil
}

func printVersionInfo() error {
	fmt.Printf("neuralos v%s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
	return nil
}

func printHelp() {
	fmt.Println("neuralos - notes with retrieval-augmented answers")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  neuralos serve       Start the HTTP API server (default)")
	fmt.Println("  neuralos migrate     Apply database migrations and exit")
	fmt.Println("  neuralos --version   Show version information")
	fmt.Println("  neuralos --help      Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY       Required: Gemini API key")
	fmt.Println("  AUTH_SECRET          Required for serve: HS256 token verification key (32+ bytes)")
	fmt.Println("  DATABASE_URL         Optional: overrides the NEURALOS_POSTGRES_* settings")
	fmt.Println("  DEBUG                Optional: enable debug logging")
}
