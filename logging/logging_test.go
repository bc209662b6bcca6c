package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "DEBUG", want: slog.LevelDebug},
		{in: "info", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "WARNING", want: slog.LevelWarn},
		{in: "warn", want: slog.LevelWarn},
		{in: "Error", want: slog.LevelError},
		{in: "CRITICAL", want: slog.LevelError},
		{in: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Error("ParseLevel() expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLevel() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_IndependentLevels(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer

	logger, cleanup, err := New(Options{
		ConsoleLevel: "warn",
		FileLevel:    "debug",
		Dir:          dir,
		Console:      &console,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	logger.With("arxivID", "2406.00001").Debug("debug only in file")
	logger.Warn("warn everywhere")
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup() error = %v", err)
	}

	if strings.Contains(console.String(), "debug only in file") {
		t.Error("console received a debug record")
	}
	if !strings.Contains(console.String(), "warn everywhere") {
		t.Error("console missed the warn record")
	}

	data, err := os.ReadFile(filepath.Join(dir, DefaultFileName))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	file := string(data)
	if !strings.Contains(file, "debug only in file") || !strings.Contains(file, "arxivID=2406.00001") {
		t.Errorf("log file = %q, want debug record with attrs", file)
	}
	if !strings.Contains(file, "warn everywhere") {
		t.Error("log file missed the warn record")
	}
	if !strings.Contains(file, "source=") {
		t.Error("log file records should carry source locations")
	}
}

func TestNew_ConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	logger, cleanup, err := New(Options{ConsoleLevel: "info", Console: &console})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer cleanup()

	logger.Info("hello")
	if !strings.Contains(console.String(), "hello") {
		t.Errorf("console = %q", console.String())
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, _, err := New(Options{ConsoleLevel: "loud"}); err == nil {
		t.Error("New() expected error for invalid console level")
	}
	if _, _, err := New(Options{FileLevel: "loud", Dir: t.TempDir()}); err == nil {
		t.Error("New() expected error for invalid file level")
	}
}
