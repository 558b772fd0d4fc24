package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize text logger: %v", err)
	}
	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat("json")); err != nil {
		t.Fatalf("failed to initialize json logger: %v", err)
	}
	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat("xml")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat("json"), WithOutput(&buf)); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := SetLevelString("info"); err != nil {
		t.Fatalf("set level: %v", err)
	}

	Named("pot").Info(context.Background(), "estimate ready",
		Float64("average_pot", 12345.5),
		Int("years", 3),
		Bool("partial", false),
		Duration("took", 2*time.Millisecond),
		Error(errors.New("boom")),
	)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if rec["msg"] != "estimate ready" {
		t.Fatalf("unexpected msg: %v", rec["msg"])
	}
	if rec["component"] != "pot" {
		t.Fatalf("expected component=pot, got %v", rec["component"])
	}
	if rec["years"] != float64(3) {
		t.Fatalf("expected years=3, got %v", rec["years"])
	}
	src, _ := rec["source"].(string)
	if !strings.Contains(src, "logger_test.go") {
		t.Fatalf("expected caller in source, got %q", src)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf)); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer func() { _ = SetLevelString("info") }()

	if err := SetLevelString("warn"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	ctx := context.Background()
	Get().Debug(ctx, "hidden-debug")
	Get().Info(ctx, "hidden-info")
	Get().Warn(ctx, "visible-warn")

	out := buf.String()
	if strings.Contains(out, "hidden-") {
		t.Fatalf("records below warn leaked: %q", out)
	}
	if !strings.Contains(out, "visible-warn") {
		t.Fatalf("warn record missing: %q", out)
	}
}

func TestSetLevelString(t *testing.T) {
	defer func() { _ = SetLevelString("info") }()
	for _, lvl := range []string{"debug", "INFO", " warn ", "warning", "error", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("level %q: unexpected error %v", lvl, err)
		}
	}
	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error(context.Background(), "discarded", String("k", "v"))
	if l.Named("x") == nil {
		t.Fatal("named nop logger is nil")
	}
	if err := Sync(); err != nil {
		t.Fatalf("sync: %v", err)
	}
}
