package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"sync"
	"time"
)

// CrashReport describes a panic.
type CrashReport struct {
	Timestamp    time.Time      `json:"timestamp"`
	Version      string         `json:"version"`
	GOOS         string         `json:"goos"`
	GOARCH       string         `json:"goarch"`
	NumGoroutine int            `json:"num_goroutine"`
	PanicValue   string         `json:"panic_value"`
	StackTrace   string         `json:"stack_trace"`
	Component    string         `json:"component,omitempty"`
	Context      map[string]any `json:"context,omitempty"`
}

// CrashHandler writes crash reports for recovered panics.
type CrashHandler struct {
	mu        sync.Mutex
	dir       string
	version   string
	component string
	stderr    io.Writer
	exit      func(int)
}

// DefaultCrashDir returns the crash report directory next to the logs.
func DefaultCrashDir(logDir string) string {
	return filepath.Join(logDir, "crashes")
}

// NewCrashHandler writes reports into dir.
func NewCrashHandler(dir, version, component string) *CrashHandler {
	return &CrashHandler{
		dir:       dir,
		version:   version,
		component: component,
		stderr:    os.Stderr,
		exit:      os.Exit,
	}
}

// Dir returns the report directory.
func (h *CrashHandler) Dir() string {
	return h.dir
}

// RecoverAndExit records a panic in flight and exits with status 2.
// Usage: defer crash.RecoverAndExit()
func (h *CrashHandler) RecoverAndExit() {
	if r := recover(); r != nil {
		h.HandlePanic(r, nil)
		h.exit(2)
	}
}

// HandlePanic records a panic value and returns the report path, or "" if
// the report could not be written.
func (h *CrashHandler) HandlePanic(panicValue any, contextInfo map[string]any) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	report := CrashReport{
		Timestamp:    time.Now().UTC(),
		Version:      h.version,
		GOOS:         runtime.GOOS,
		GOARCH:       runtime.GOARCH,
		NumGoroutine: runtime.NumGoroutine(),
		PanicValue:   fmt.Sprintf("%v", panicValue),
		StackTrace:   string(debug.Stack()),
		Component:    h.component,
		Context:      contextInfo,
	}

	path, err := h.writeCrashDump(report)

	fmt.Fprintf(h.stderr, "\n=== CRASH REPORT ===\n")
	fmt.Fprintf(h.stderr, "Time: %s\n", report.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(h.stderr, "Panic: %s\n", report.PanicValue)
	fmt.Fprintf(h.stderr, "Stack trace:\n%s\n", report.StackTrace)
	if err != nil {
		fmt.Fprintf(h.stderr, "Crash dump not written: %v\n", err)
		return ""
	}
	fmt.Fprintf(h.stderr, "Crash dump written to: %s\n", path)
	return path
}

func (h *CrashHandler) writeCrashDump(report CrashReport) (string, error) {
	if err := os.MkdirAll(h.dir, 0750); err != nil {
		return "", fmt.Errorf("create crash directory: %w", err)
	}

	name := fmt.Sprintf("crash-%s-%s.json", report.Component, report.Timestamp.Format("20060102-150405.000"))
	path := filepath.Join(h.dir, name)

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal crash report: %w", err)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		return "", fmt.Errorf("write crash report: %w", err)
	}
	return path, nil
}

// Reports returns the stored crash reports.
func (h *CrashHandler) Reports() ([]CrashReport, error) {
	files, err := filepath.Glob(filepath.Join(h.dir, "crash-*.json"))
	if err != nil {
		return nil, err
	}

	reports := make([]CrashReport, 0, len(files))
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		var report CrashReport
		if err := json.Unmarshal(data, &report); err != nil {
			continue
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// Cleanup removes reports older than maxAge.
func (h *CrashHandler) Cleanup(maxAge time.Duration) error {
	files, err := filepath.Glob(filepath.Join(h.dir, "crash-*.json"))
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-maxAge)
	for _, file := range files {
		info, err := os.Stat(file)
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			os.Remove(file)
		}
	}
	return nil
}
