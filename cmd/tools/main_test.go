package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"skladi/internal/config"
)

func TestRun(t *testing.T) {
	cfg := config.ServerConfig{SQLitePath: filepath.Join(t.TempDir(), "db", "skladi.db")}

	var out bytes.Buffer
	if err := run("status", cfg, &out); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out.String(), "pending") {
		t.Fatalf("status before migrate = %q, want pending entries", out.String())
	}

	out.Reset()
	if err := run("migrate", cfg, &out); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if strings.TrimSpace(out.String()) != "migrations applied" {
		t.Fatalf("migrate output = %q", out.String())
	}

	out.Reset()
	if err := run("status", cfg, &out); err != nil {
		t.Fatalf("status: %v", err)
	}
	if strings.Contains(out.String(), "pending") || !strings.Contains(out.String(), "applied") {
		t.Fatalf("status after migrate = %q", out.String())
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	if err := run("seed", config.ServerConfig{}, &bytes.Buffer{}); err == nil {
		t.Fatal("run(seed) error = nil")
	}
}
