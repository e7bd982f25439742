package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "info", "text")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Info("clip written", "component", "audio", "index", 3)
	logger.Debug("hidden")

	out := buf.String()
	if !strings.Contains(out, "msg=\"clip written\"") {
		t.Errorf("text output missing message: %q", out)
	}
	if !strings.Contains(out, "index=3") {
		t.Errorf("text output missing attribute: %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record should be filtered at info level: %q", out)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, "debug", "json")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.Debug("decoded", "samples", 16000)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "decoded" {
		t.Errorf("msg = %v, want %q", rec["msg"], "decoded")
	}
	if rec["samples"] != float64(16000) {
		t.Errorf("samples = %v, want 16000", rec["samples"])
	}
}

func TestNewUnsupportedFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "info", "xml"); err == nil {
		t.Error("New() should reject unknown formats")
	}
}

func TestIsTerminalNonFile(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("IsTerminal() should be false for an in-memory writer")
	}
}
