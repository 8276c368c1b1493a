package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentConversation, Format: FormatJSON, Output: &buf})
	l.Info("hello", FieldUserID, int64(7))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec[FieldComponent] != ComponentConversation || rec[FieldUserID] != float64(7) {
		t.Fatalf("unexpected record: %v", rec)
	}
	if l.Component() != ComponentConversation {
		t.Fatalf("unexpected component %q", l.Component())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{"debug": slog.LevelDebug, "INFO": slog.LevelInfo, " warn ": slog.LevelWarn, "error": slog.LevelError}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestValidFormat(t *testing.T) {
	for _, f := range []string{FormatText, FormatJSON, FormatPretty} {
		if !ValidFormat(f) {
			t.Fatalf("%q should be valid", f)
		}
	}
	if ValidFormat("xml") {
		t.Fatal("xml is not a format")
	}
}

func TestPrettyHandlerWrites(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: FormatPretty, Output: &buf})
	l.Debug("hidden")
	l.Warn("visible", FieldState, "Idle")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "visible") {
		t.Fatalf("unexpected pretty output: %q", out)
	}
}

func TestFromContext(t *testing.T) {
	l := New(Config{Handler: slog.NewTextHandler(&bytes.Buffer{}, nil), Component: ComponentTelegram})
	ctx := WithContext(context.Background(), l)
	if FromContext(ctx) != l {
		t.Fatal("expected the stored logger")
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatal("expected fallback logger")
	}
}

func TestStructuredLoggerError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: FormatJSON, Output: &buf}))
	sl.LogError(context.Background(), "append failed", errors.New("quota"), OpSubmit, NewFields().WithSender(1, 2))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec[FieldError] != "quota" || rec[FieldOperation] != OpSubmit || rec["level"] != "ERROR" {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestWithComponentReplaces(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: FormatJSON, Output: &buf, Component: ComponentApp}).
		With(FieldChatID, int64(3)).
		WithComponent(ComponentWorker)
	l.Info("tick")

	out := buf.String()
	if strings.Count(out, `"component"`) != 1 || !strings.Contains(out, `"component":"worker"`) {
		t.Fatalf("component should be replaced, got %s", out)
	}
	if !strings.Contains(out, `"chat_id":3`) || l.Component() != ComponentWorker {
		t.Fatalf("attributes should survive, got %s", out)
	}
}
