package cli

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"aspirebot/internal/config"
	applog "aspirebot/internal/log"
)

func TestSetupLogger(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := setupLogger(config.LogConfig{Level: "debug", Format: applog.FormatJSON}, applog.ComponentWorker, &buf)
	logger.Debug("hello")

	out := buf.String()
	if !strings.Contains(out, `"msg":"hello"`) || !strings.Contains(out, `"component":"worker"`) {
		t.Fatalf("unexpected output: %s", out)
	}
	if slog.Default() != logger.Logger {
		t.Fatal("logger should become the slog default")
	}
}

func TestSetupLoggerUnknownLevel(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := setupLogger(config.LogConfig{Level: "loud", Format: applog.FormatText}, applog.ComponentApp, &buf)
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "Unknown log level") || strings.Contains(out, "hidden") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestLoadAndValidateConfig(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	key := filepath.Join(dir, "key.json")
	if err := os.WriteFile(key, []byte("{}"), 0o600); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.toml")
	body := "[gsheet]\ngsheet_worksheet_id = \"sheet\"\ngsheet_api_key_filepath = \"" + key + "\"\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadAndValidateConfig(path, false); err == nil || !strings.Contains(err.Error(), "telegram token") {
		t.Fatalf("bot validation should require a token, got %v", err)
	}
	cfg, err := LoadAndValidateConfig(path, true)
	if err != nil {
		t.Fatalf("worker validation: %v", err)
	}
	if cfg.GSheet.SpreadsheetID != "sheet" {
		t.Fatalf("unexpected spreadsheet ID %q", cfg.GSheet.SpreadsheetID)
	}

	if _, err := LoadAndValidateConfig(filepath.Join(dir, "missing.toml"), true); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestInitSQLite(t *testing.T) {
	repo, err := InitSQLite(slog.Default(), filepath.Join(t.TempDir(), "db", "outbox.db"))
	if err != nil {
		t.Fatalf("InitSQLite: %v", err)
	}
	repo.Close()
}
