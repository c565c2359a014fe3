package logging

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"uptone/internal/services"
)

func TestNewWritesConsoleFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uptone.log")
	logger, err := New(Options{Level: "info", Format: "console", OutputPaths: []string{path}, ErrorOutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	component := NewComponentLogger(logger.Logger, "matcher")
	component.Info("matched", String(FieldFile, "song.mp3"), Int(FieldItemIndex, 2))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	if !strings.Contains(line, "INFO matcher: matched") {
		t.Fatalf("unexpected log line: %q", line)
	}
	if !strings.Contains(line, "file=song.mp3") || !strings.Contains(line, "item_index=2") {
		t.Fatalf("missing attrs in log line: %q", line)
	}
}

func TestSetLevelSuppressesAndRestores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uptone.log")
	logger, err := New(Options{Level: "error", Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("hidden")
	logger.SetLevel("debug")
	logger.Debug("visible")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should have been suppressed: %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("debug line missing after SetLevel: %q", out)
	}
}

func TestWithContextCarriesAnnotations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uptone.log")
	logger, err := New(Options{Level: "info", Format: "console", OutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := services.WithRunID(context.Background(), "abcd1234")
	ctx = services.WithItemIndex(ctx, 7)
	ctx = services.WithOperation(ctx, "match")
	WithContext(ctx, logger.Logger).Warn("search failed")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	line := string(data)
	for _, want := range []string{"item_index=7", "operation=match", "run_id=abcd1234"} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %s: %q", want, line)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
