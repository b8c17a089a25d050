package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"skladi/internal/config"
	"skladi/internal/db"
	"skladi/internal/db/migrate"
)

const usage = `usage: %s <command>
  migrate  apply pending schema migrations
  status   list migrations and whether they are applied
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(1)
	}

	cfg, err := config.LoadServerFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	if err := run(os.Args[1], cfg, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(command string, cfg config.ServerConfig, out io.Writer) error {
	switch command {
	case "migrate", "status":
	default:
		return errors.New("unknown command (want migrate or status)")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
		return fmt.Errorf("create sqlite dir: %w", err)
	}
	conn, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(conn); closeErr != nil {
			slog.Error("db close", "err", closeErr)
		}
	}()

	if command == "migrate" {
		if err := migrate.Run(conn); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations applied")
		return nil
	}

	migrations, err := migrate.Status(conn)
	if err != nil {
		return err
	}
	for _, m := range migrations {
		state := "pending"
		if m.Applied {
			state = "applied"
		}
		fmt.Fprintf(out, "%s_%s\t%s\n", m.Version, m.Name, state)
	}
	return nil
}
