package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := InitWithWriter(nil); err == nil {
		t.Fatal("expected an error for a nil writer")
	}
}

func TestLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	ctx := context.Background()
	Named("slicer").Info(ctx, "pool created",
		String("threshold", "> 10"),
		Int("pairs", 42),
		Float64("quantile", 0.9),
		Error(errors.New("boom")),
	)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v (%q)", err, buf.String())
	}
	if line["message"] != "pool created" {
		t.Errorf("unexpected message: %v", line["message"])
	}
	if line["logger"] != "slicer" {
		t.Errorf("unexpected logger name: %v", line["logger"])
	}
	if line["pairs"] != float64(42) {
		t.Errorf("unexpected pairs field: %v", line["pairs"])
	}
	if line["error"] != "boom" {
		t.Errorf("unexpected error field: %v", line["error"])
	}
	if src, _ := line["source"].(string); !strings.Contains(src, "logger_test.go") {
		t.Errorf("unexpected source field: %v", line["source"])
	}
}

func TestSetLevelString(t *testing.T) {
	var buf bytes.Buffer
	if err := InitWithWriter(&buf); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = SetLevelString("info") }()

	for _, lvl := range []string{"debug", "info", "warn", "warning", "error", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("level %q should be accepted: %v", lvl, err)
		}
	}
	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected an error for an unknown level")
	}

	if err := SetLevelString("error"); err != nil {
		t.Fatal(err)
	}
	Get().Info(context.Background(), "suppressed")
	if buf.Len() != 0 {
		t.Errorf("info line written at error level: %q", buf.String())
	}
}
