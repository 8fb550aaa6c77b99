package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLoggerWritesStructuredEntries(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})

	InfoWithUser("user-1", "board_created", map[string]interface{}{"board_id": "b1"})
	Error("board_delete_failed", errors.New("boom"), nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %q", len(lines), buf.String())
	}

	var first map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("failed decoding log line: %v", err)
	}
	if first["action"] != "board_created" || first["user_id"] != "user-1" || first["board_id"] != "b1" {
		t.Fatalf("unexpected entry: %+v", first)
	}
	if first["level"] != "info" {
		t.Fatalf("expected info level, got %v", first["level"])
	}

	var second map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("failed decoding log line: %v", err)
	}
	if second["error"] != "boom" || second["level"] != "error" {
		t.Fatalf("unexpected error entry: %+v", second)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Output: &buf})

	Info("ignored", nil)
	Warn("kept", nil)

	if strings.Contains(buf.String(), "ignored") {
		t.Fatalf("info entry should have been filtered: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn entry missing: %q", buf.String())
	}
}

func TestRedactSensitiveFields(t *testing.T) {
	body := map[string]interface{}{"email": "a@b.c", "password": "hunter22"}
	redactSensitiveFields(body)
	if body["password"] != "[REDACTED]" {
		t.Fatalf("password not redacted: %+v", body)
	}
	if body["email"] != "a@b.c" {
		t.Fatalf("email should be untouched: %+v", body)
	}
}
