package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type fakeScope map[string]any

func (f fakeScope) LogFields() map[string]any { return f }

func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		component string
		level     string
		format    string
	}{
		{"json logger", "test-component", "info", "json"},
		{"text logger", "test-component", "debug", "text"},
		{"invalid level", "test-component", "invalid", "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.component, tt.level, tt.format)
			if logger == nil {
				t.Fatal("New() returned nil")
			}
			if logger.component != tt.component {
				t.Errorf("component = %v, want %v", logger.component, tt.component)
			}
		})
	}
}

func TestLogger_WithContext(t *testing.T) {
	logger := New("test", "info", "json")
	ctx := context.WithValue(context.Background(), ScopeKey, fakeScope{
		"parent_id": "ev-1",
		"root_id":   "ev-0",
	})

	entry := logger.WithContext(ctx)
	if entry == nil {
		t.Fatal("WithContext() returned nil")
	}
	if entry.Data["component"] != "test" {
		t.Errorf("component field = %v, want test", entry.Data["component"])
	}
	if entry.Data["parent_id"] != "ev-1" {
		t.Errorf("parent_id field = %v, want ev-1", entry.Data["parent_id"])
	}
	if entry.Data["root_id"] != "ev-0" {
		t.Errorf("root_id field = %v, want ev-0", entry.Data["root_id"])
	}
}

func TestLogger_WithFields(t *testing.T) {
	logger := New("test", "info", "json")
	fields := map[string]interface{}{
		"key1": "value1",
		"key2": 123,
	}

	entry := logger.WithFields(fields)

	if entry.Data["key1"] != "value1" {
		t.Errorf("key1 = %v, want value1", entry.Data["key1"])
	}
	if entry.Data["component"] != "test" {
		t.Errorf("component = %v, want test", entry.Data["component"])
	}
}

func TestLogger_WithError(t *testing.T) {
	logger := New("test", "info", "json")
	err := errors.New("test error")

	entry := logger.WithError(err)

	if entry.Data["error"] != "test error" {
		t.Errorf("error = %v, want test error", entry.Data["error"])
	}
}

func TestLogger_SetOutput(t *testing.T) {
	logger := New("test", "info", "json")
	buf := &bytes.Buffer{}

	logger.SetOutput(buf)
	logger.Logger.Info("test message")

	if buf.Len() == 0 {
		t.Error("SetOutput() did not redirect output")
	}
}

func TestNewCorrelationID(t *testing.T) {
	id1 := NewCorrelationID()
	id2 := NewCorrelationID()

	if id1 == "" {
		t.Error("NewCorrelationID() returned empty string")
	}
	if id1 == id2 {
		t.Error("NewCorrelationID() returned duplicate IDs")
	}
}

func TestWithServiceAndGetService(t *testing.T) {
	ctx := context.Background()
	service := "test-service"

	ctx = WithService(ctx, service)
	got := GetService(ctx)

	if got != service {
		t.Errorf("GetService() = %v, want %v", got, service)
	}

	if got := GetService(context.Background()); got != "" {
		t.Errorf("GetService() on bare context = %v, want empty", got)
	}
}

func TestLogger_LogInvocation(t *testing.T) {
	logger := New("test", "info", "json")
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)

	ctx := context.Background()
	logger.LogInvocation(ctx, "update_field", 10*time.Millisecond, nil)
	if buf.Len() == 0 {
		t.Error("LogInvocation() did not write log for success")
	}

	buf.Reset()
	logger.LogInvocation(ctx, "update_field", 10*time.Millisecond, errors.New("boom"))
	if buf.Len() == 0 {
		t.Error("LogInvocation() did not write log for error")
	}
}

func TestLogger_LogClassification(t *testing.T) {
	logger := New("test", "debug", "json")
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)

	logger.LogClassification(context.Background(), "ecs-1", "mutation")
	if buf.Len() == 0 {
		t.Error("LogClassification() did not write log")
	}
}

func TestLogger_LogAddressResolution(t *testing.T) {
	logger := New("test", "debug", "json")
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)

	logger.LogAddressResolution(context.Background(), "@id.v", nil)
	if buf.Len() == 0 {
		t.Error("LogAddressResolution() did not write log for success")
	}

	buf.Reset()
	logger.LogAddressResolution(context.Background(), "@id.v", errors.New("not found"))
	if buf.Len() == 0 {
		t.Error("LogAddressResolution() did not write log for error")
	}
}

func TestLogger_LogEventEmit(t *testing.T) {
	logger := New("test", "debug", "json")
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)

	logger.LogEventEmit(context.Background(), "processed", "ev-2", "ev-1")
	if buf.Len() == 0 {
		t.Error("LogEventEmit() did not write log")
	}
}

func TestLogger_LogRetentionSweep(t *testing.T) {
	logger := New("test", "info", "json")
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)

	logger.LogRetentionSweep(context.Background(), 3, 10)
	if buf.Len() == 0 {
		t.Error("LogRetentionSweep() did not write log")
	}
}

func TestLogger_Info(t *testing.T) {
	logger := New("test", "info", "json")
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)

	logger.Info(context.Background(), "test message", map[string]interface{}{"key": "value"})
	if buf.Len() == 0 {
		t.Error("Info() did not write log")
	}
}

func TestLogger_Error(t *testing.T) {
	logger := New("test", "info", "json")
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)

	logger.Error(context.Background(), "error occurred", errors.New("test error"), map[string]interface{}{"key": "value"})
	if buf.Len() == 0 {
		t.Error("Error() did not write log")
	}
}

func TestLogger_Warn(t *testing.T) {
	logger := New("test", "info", "json")
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)

	logger.Warn(context.Background(), "warning message", map[string]interface{}{"key": "value"})
	if buf.Len() == 0 {
		t.Error("Warn() did not write log")
	}
}

func TestLogger_Debug(t *testing.T) {
	logger := New("test", "debug", "json")
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)

	logger.Debug(context.Background(), "debug message", map[string]interface{}{"key": "value"})
	if buf.Len() == 0 {
		t.Error("Debug() did not write log")
	}
}

func TestInitDefaultAndDefault(t *testing.T) {
	InitDefault("test-component", "info", "json")

	logger := Default()
	if logger == nil {
		t.Fatal("Default() returned nil after InitDefault()")
	}
	if logger.component != "test-component" {
		t.Errorf("component = %v, want test-component", logger.component)
	}

	defaultLogger = nil
	logger = Default()
	if logger.component != "entityflow" {
		t.Errorf("component = %v, want entityflow", logger.component)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		want     string
	}{
		{"1 millisecond", 1 * time.Millisecond, "1.00ms"},
		{"100 milliseconds", 100 * time.Millisecond, "100.00ms"},
		{"1 second", 1 * time.Second, "1000.00ms"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDuration(tt.duration); got != tt.want {
				t.Errorf("FormatDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLogger_LogLevels(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logLevel logrus.Level
	}{
		{"debug level", "debug", logrus.DebugLevel},
		{"info level", "info", logrus.InfoLevel},
		{"warn level", "warn", logrus.WarnLevel},
		{"error level", "error", logrus.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New("test", tt.level, "json")
			if logger.Logger.Level != tt.logLevel {
				t.Errorf("Level = %v, want %v", logger.Logger.Level, tt.logLevel)
			}
		})
	}
}

func TestLogger_JSONFormatter(t *testing.T) {
	logger := New("test", "info", "json")
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)

	logger.Logger.Info("test")

	if !bytes.Contains(buf.Bytes(), []byte(`"`)) {
		t.Error("Output does not appear to be JSON")
	}
}

func TestLogger_TextFormatter(t *testing.T) {
	logger := New("test", "info", "text")
	buf := &bytes.Buffer{}
	logger.SetOutput(buf)

	logger.Logger.Info("test")

	if buf.Len() == 0 {
		t.Error("Text formatter did not produce output")
	}
}
