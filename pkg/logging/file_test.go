package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sdejongh/sigrename/pkg/models"
)

func newTestLogger(t *testing.T, format Format, level Level) (*FileLogger, string) {
	t.Helper()

	logPath := filepath.Join(t.TempDir(), "test.log")
	logger, err := NewFileLogger(FileLoggerConfig{
		Path:   logPath,
		Format: format,
		Level:  level,
	})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	return logger, logPath
}

func readLog(t *testing.T, logPath string) string {
	t.Helper()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	return string(content)
}

func TestNewFileLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "test.log")
	config := FileLoggerConfig{
		Path:       logPath,
		Format:     FormatText,
		Level:      InfoLevel,
		MaxSizeMB:  1,
		MaxBackups: 3,
	}

	logger, err := NewFileLogger(config)
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	defer logger.Close()

	// The file is opened on first write
	logger.Info(context.Background(), "started", nil)

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}
}

func TestNewFileLogger_CreatesDirectory(t *testing.T) {
	// Use a nested path that doesn't exist
	logPath := filepath.Join(t.TempDir(), "nested", "dir", "test.log")

	logger, err := NewFileLogger(FileLoggerConfig{Path: logPath, Format: FormatText})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(filepath.Dir(logPath)); os.IsNotExist(err) {
		t.Error("Log directory was not created")
	}
}

func TestNewFileLogger_EmptyPath(t *testing.T) {
	if _, err := NewFileLogger(FileLoggerConfig{}); err == nil {
		t.Error("NewFileLogger() should fail without a path")
	}
}

func TestFileLogger_LogLevels(t *testing.T) {
	logger, logPath := newTestLogger(t, FormatText, InfoLevel)
	ctx := context.Background()

	logger.Debug(ctx, "debug message", nil)
	logger.Info(ctx, "info message", nil)
	logger.Warn(ctx, "warn message", nil)
	logger.Error(ctx, "error message", nil, nil)
	logger.Close()

	logContent := readLog(t, logPath)

	// Debug should NOT be present
	if strings.Contains(logContent, "debug message") {
		t.Error("Debug message should be filtered at INFO level")
	}

	for _, want := range []string{"info message", "warn message", "error message"} {
		if !strings.Contains(logContent, want) {
			t.Errorf("%q should be present", want)
		}
	}
}

func TestFileLogger_DebugLevel(t *testing.T) {
	logger, logPath := newTestLogger(t, FormatText, DebugLevel)

	logger.Debug(context.Background(), "debug message", nil)
	logger.Close()

	if !strings.Contains(readLog(t, logPath), "debug message") {
		t.Error("Debug message should be present at DEBUG level")
	}
}

func TestFileLogger_TextFormat(t *testing.T) {
	logger, logPath := newTestLogger(t, FormatText, InfoLevel)

	logger.Info(context.Background(), "file classified", Fields{"name": "doc.bin", "format": "DOCX"})
	logger.Close()

	logContent := readLog(t, logPath)

	// Check format: timestamp [LEVEL] message key=value, keys sorted
	if !strings.Contains(logContent, "[INFO] file classified") {
		t.Errorf("unexpected log line: %s", logContent)
	}
	if !strings.Contains(logContent, "format=DOCX name=doc.bin") {
		t.Errorf("fields should be sorted by key: %s", logContent)
	}
}

func TestFileLogger_JSONFormat(t *testing.T) {
	logger, logPath := newTestLogger(t, FormatJSON, InfoLevel)

	logger.Info(context.Background(), "file renamed", Fields{"output": "doc.docx", "size": 42})
	logger.Close()

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(readLog(t, logPath)), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	if entry["level"] != "INFO" {
		t.Errorf("level = %v, want INFO", entry["level"])
	}
	if entry["message"] != "file renamed" {
		t.Errorf("message = %v, want 'file renamed'", entry["message"])
	}
	if entry["output"] != "doc.docx" {
		t.Errorf("output = %v, want 'doc.docx'", entry["output"])
	}
	if entry["timestamp"] == nil {
		t.Error("timestamp should be present")
	}
}

func TestFileLogger_ErrorWithErr(t *testing.T) {
	logger, logPath := newTestLogger(t, FormatJSON, InfoLevel)

	testErr := &testError{msg: "disk full"}
	logger.Error(context.Background(), "write failed", testErr, Fields{"name": "a.png"})
	logger.Close()

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(readLog(t, logPath)), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	if entry["error"] != "disk full" {
		t.Errorf("error = %v, want 'disk full'", entry["error"])
	}
}

type testError struct {
	msg string
}

func (e *testError) Error() string {
	return e.msg
}

func TestFileLogger_WithFields(t *testing.T) {
	logger, logPath := newTestLogger(t, FormatJSON, InfoLevel)

	scoped := logger.WithFields(Fields{"component": "batch"})
	scoped.Info(context.Background(), "test", Fields{"action": "RENAMED"})
	logger.Close()

	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(readLog(t, logPath)), &entry); err != nil {
		t.Fatalf("Failed to parse JSON log: %v", err)
	}

	// Should have both base and additional fields
	if entry["component"] != "batch" {
		t.Errorf("component = %v, want 'batch'", entry["component"])
	}
	if entry["action"] != "RENAMED" {
		t.Errorf("action = %v, want 'RENAMED'", entry["action"])
	}
}

func TestFileLogger_Rotation(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "test.log")

	logger, err := NewFileLogger(FileLoggerConfig{
		Path:       logPath,
		Format:     FormatText,
		Level:      InfoLevel,
		MaxBackups: 2,
	})
	if err != nil {
		t.Fatalf("NewFileLogger() error = %v", err)
	}

	ctx := context.Background()
	logger.Info(ctx, "before rotation", nil)
	if err := logger.Rotate(); err != nil {
		t.Fatalf("Rotate() error = %v", err)
	}
	logger.Info(ctx, "after rotation", nil)
	logger.Close()

	// lumberjack names backups test-<timestamp>.log
	backups, err := filepath.Glob(filepath.Join(dir, "test-*.log"))
	if err != nil {
		t.Fatalf("Glob() error = %v", err)
	}
	if len(backups) != 1 {
		t.Errorf("expected 1 backup file, got %d", len(backups))
	}

	content := readLog(t, logPath)
	if strings.Contains(content, "before rotation") || !strings.Contains(content, "after rotation") {
		t.Errorf("current log should only hold post-rotation lines: %s", content)
	}
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, FormatText, WarnLevel)

	ctx := context.Background()
	logger.Info(ctx, "hidden", nil)
	logger.Warn(ctx, "archive could not be opened", Fields{"archive": "x.zip"})

	if strings.Contains(buf.String(), "hidden") {
		t.Error("Info should be filtered at WARN level")
	}
	if !strings.Contains(buf.String(), "archive=x.zip") {
		t.Errorf("unexpected output: %s", buf.String())
	}
	if err := logger.Rotate(); err != nil {
		t.Errorf("Rotate() on writer logger error = %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestNullLogger(t *testing.T) {
	logger := Discard
	ctx := context.Background()

	// None of these should panic
	logger.Debug(ctx, "debug", nil)
	logger.Info(ctx, "info", nil)
	logger.Warn(ctx, "warn", nil)
	logger.Error(ctx, "error", nil, nil)

	if logger.WithFields(Fields{"key": "value"}) != Discard {
		t.Error("WithFields should return the same logger")
	}

	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestActionFields(t *testing.T) {
	renamed := ActionFields(models.ActionRecord{
		OriginalName: "scan.tmp",
		Origin:       "batch.zip",
		Action:       models.ActionRenamed,
		Format:       "PNG",
		Basis:        models.BasisSignature,
		OutputName:   "scan.png",
		Size:         42,
	})
	if renamed["output"] != "scan.png" || renamed["origin"] != "batch.zip" || renamed["size"] != int64(42) {
		t.Errorf("unexpected fields: %v", renamed)
	}
	if _, ok := renamed["reason"]; ok {
		t.Error("reason should be omitted when empty")
	}

	failed := ActionFields(models.ActionRecord{
		OriginalName: "locked.pdf",
		Action:       models.ActionFailed,
		Reason:       "permission denied",
	})
	if failed["reason"] != "permission denied" {
		t.Errorf("reason = %v", failed["reason"])
	}
	for _, key := range []string{"output", "origin"} {
		if _, ok := failed[key]; ok {
			t.Errorf("%s should be omitted when empty", key)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"info", InfoLevel},
		{"warn", WarnLevel},
		{"Warning", WarnLevel},
		{"error", ErrorLevel},
		{"unknown", InfoLevel}, // Default
		{"", InfoLevel},        // Default
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := ParseLevel(tt.input); result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{Level(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if result := LevelString(tt.level); result != tt.expected {
				t.Errorf("LevelString(%v) = %q, want %q", tt.level, result, tt.expected)
			}
		})
	}
}

func TestFileLogger_ConcurrentWrites(t *testing.T) {
	logger, logPath := newTestLogger(t, FormatText, InfoLevel)
	ctx := context.Background()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			scoped := logger.WithFields(Fields{"goroutine": id})
			for j := 0; j < 100; j++ {
				scoped.Info(ctx, "concurrent message", Fields{"iteration": j})
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("Timeout waiting for concurrent writes")
		}
	}

	logger.Close()

	lines := strings.Split(strings.TrimSpace(readLog(t, logPath)), "\n")
	if len(lines) != 1000 {
		t.Errorf("Expected 1000 log lines, got %d", len(lines))
	}
}
