package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sqlpeek/sqlpeek/internal/cli/sqlpeekctl"
)

func main() {
	timeout := parseDurationWithDefault(strings.TrimSpace(os.Getenv("SQLPEEK_CLI_TIMEOUT")), 30*time.Second)
	options := sqlpeekctl.Options{
		BaseURL:          envOr("SQLPEEK_API_URL", "http://localhost:3001"),
		EngineType:       strings.TrimSpace(os.Getenv("SQLPEEK_DB_TYPE")),
		ConnectionString: strings.TrimSpace(os.Getenv("SQLPEEK_DB_CONNECTION")),
		Timeout:          timeout,
		Stdout:           os.Stdout,
		Stderr:           os.Stderr,
	}

	code := sqlpeekctl.Run(context.Background(), os.Args[1:], options)
	os.Exit(code)
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseDurationWithDefault(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid SQLPEEK_CLI_TIMEOUT %q; using %s\n", raw, fallback)
		return fallback
	}
	return parsed
}
