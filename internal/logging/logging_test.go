package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		hasError bool
	}{
		{"debug", LevelDebug, false},
		{"DEBUG", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"invalid", LevelInfo, true},
		{"", LevelInfo, true},
	}

	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			level, err := ParseLevel(test.input)
			if test.hasError && err == nil {
				t.Error("expected error, got nil")
			}
			if !test.hasError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !test.hasError && level != test.expected {
				t.Errorf("expected %v, got %v", test.expected, level)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	for level, want := range map[Level]string{
		LevelDebug: "debug",
		LevelInfo:  "info",
		LevelWarn:  "warn",
		LevelError: "error",
	} {
		if got := LevelString(level); got != want {
			t.Errorf("LevelString(%v) = %s, want %s", level, got, want)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JSON"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(JSON) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("ParseFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Level != LevelInfo {
		t.Errorf("expected info level, got %v", cfg.Level)
	}
	if cfg.Output != "stderr" {
		t.Errorf("expected stderr output, got %s", cfg.Output)
	}
	if cfg.Component != "timestampus" {
		t.Errorf("expected timestampus component, got %s", cfg.Component)
	}
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Writer = &buf

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.WithComponent("watcher").Info("hello")
	if !strings.Contains(buf.String(), "component=watcher") {
		t.Errorf("component missing: %s", buf.String())
	}
}

func TestShouldRedact(t *testing.T) {
	tests := []struct {
		key    string
		level  Level
		redact bool
	}{
		{"password", LevelInfo, true},
		{"api_key", LevelInfo, true},
		{"token", LevelInfo, false},
		{"keyword", LevelInfo, false},
		{"buffer", LevelInfo, true},
		{"buffer", LevelDebug, false},
		{"date", LevelInfo, false},
	}

	for _, test := range tests {
		if got := shouldRedact(test.key, test.level); got != test.redact {
			t.Errorf("shouldRedact(%q, %v) = %v, want %v", test.key, test.level, got, test.redact)
		}
	}
}

func TestBufferRedactedBelowDebug(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Writer = &buf
	cfg.Level = LevelInfo

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("state", "buffer", "my secret text", "token", "<t:1:f>")

	out := buf.String()
	if strings.Contains(out, "my secret text") {
		t.Errorf("buffer leaked: %s", out)
	}
	if !strings.Contains(out, Redacted) {
		t.Errorf("expected redaction marker: %s", out)
	}
	if !strings.Contains(out, "<t:1:f>") {
		t.Errorf("token should be logged: %s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Writer = &buf
	cfg.Format = FormatJSON

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Warn("invalid flag", "flag", "x")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	if entry["msg"] != "invalid flag" || entry["flag"] != "x" || entry["level"] != "WARN" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestFileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "timestampus.log")
	cfg := DefaultConfig()
	cfg.Output = "file"
	cfg.FilePath = path

	logger, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info("started")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "msg=started") {
		t.Errorf("log file missing entry: %s", data)
	}
}

func TestFileRotatorRotation(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		FilePath:   filepath.Join(dir, "test.log"),
		MaxSize:    1,
		MaxBackups: 2,
	}

	r, err := NewFileRotator(cfg)
	if err != nil {
		t.Fatalf("NewFileRotator failed: %v", err)
	}
	defer r.Close()

	clock := time.Date(2024, 12, 25, 18, 30, 0, 0, time.UTC)
	r.now = func() time.Time { return clock }
	r.openedAt = clock

	chunk := bytes.Repeat([]byte("x"), 600*1024)
	for i := 0; i < 5; i++ {
		clock = clock.Add(time.Second)
		if _, err := r.Write(chunk); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}
	r.wg.Wait()

	files, err := r.logFiles()
	if err != nil {
		t.Fatalf("logFiles failed: %v", err)
	}
	// Current file plus at most MaxBackups rotated files.
	if len(files) < 2 || len(files) > 3 {
		t.Errorf("expected 2-3 log files, got %d: %v", len(files), files)
	}
}

func TestFileRotatorDailyRotation(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{FilePath: filepath.Join(dir, "day.log"), MaxSize: 100}

	r, err := NewFileRotator(cfg)
	if err != nil {
		t.Fatalf("NewFileRotator failed: %v", err)
	}
	defer r.Close()

	day := time.Date(2024, 12, 25, 23, 59, 0, 0, time.UTC)
	r.now = func() time.Time { return day }
	r.openedAt = day

	r.Write([]byte("before midnight\n"))
	day = day.Add(2 * time.Minute)
	r.Write([]byte("after midnight\n"))
	r.wg.Wait()

	rotated, _ := filepath.Glob(filepath.Join(dir, "day-*.log"))
	if len(rotated) != 1 {
		t.Fatalf("expected one rotated file, got %v", rotated)
	}
	data, _ := os.ReadFile(cfg.FilePath)
	if string(data) != "after midnight\n" {
		t.Errorf("current file = %q", data)
	}
}

func TestNewFileRotatorEmptyPath(t *testing.T) {
	if _, err := NewFileRotator(&Config{}); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestCrashHandler(t *testing.T) {
	dir := t.TempDir()
	var stderr bytes.Buffer
	h := NewCrashHandler(dir, "1.0.0", "timestampus")
	h.stderr = &stderr

	path := h.HandlePanic(errors.New("boom"), map[string]any{"command": "run"})
	if path == "" {
		t.Fatal("report not written")
	}
	if !strings.Contains(stderr.String(), "Panic: boom") {
		t.Errorf("stderr missing panic: %s", stderr.String())
	}

	reports, err := h.Reports()
	if err != nil {
		t.Fatalf("Reports failed: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	if reports[0].PanicValue != "boom" || reports[0].Version != "1.0.0" || reports[0].Context["command"] != "run" {
		t.Errorf("unexpected report: %+v", reports[0])
	}
}

func TestCrashHandlerRecoverAndExit(t *testing.T) {
	dir := t.TempDir()
	h := NewCrashHandler(dir, "dev", "timestampus")
	h.stderr = &bytes.Buffer{}
	code := -1
	h.exit = func(c int) { code = c }

	func() {
		defer h.RecoverAndExit()
		panic("kaboom")
	}()

	if code != 2 {
		t.Errorf("expected exit code 2, got %d", code)
	}
	reports, _ := h.Reports()
	if len(reports) != 1 || reports[0].PanicValue != "kaboom" {
		t.Errorf("unexpected reports: %+v", reports)
	}
}

func TestCrashHandlerCleanup(t *testing.T) {
	dir := t.TempDir()
	h := NewCrashHandler(dir, "dev", "timestampus")
	h.stderr = &bytes.Buffer{}

	path := h.HandlePanic("old", nil)
	old := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	if err := h.Cleanup(24 * time.Hour); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	reports, _ := h.Reports()
	if len(reports) != 0 {
		t.Errorf("expected old report removed, got %d", len(reports))
	}
}
