package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Feature: storefront-backend, Property: Logs are structured
// Validates: ambient logging stack
func TestProperty_LogsAreStructured(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every entry is a JSON object with level, timestamp, message and service", prop.ForAll(
		func(message string, level string) bool {
			var buf bytes.Buffer
			logger := NewForWriter(&buf, zapcore.DebugLevel)

			switch level {
			case "debug":
				logger.Debug(message)
			case "warn":
				logger.Warn(message)
			case "error":
				logger.Error(message)
			default:
				logger.Info(message)
			}
			_ = logger.Sync()

			// Error entries carry a stacktrace line but stay a single JSON document
			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				return false
			}

			for _, key := range []string{"level", "timestamp", "message", "service"} {
				if _, ok := entry[key]; !ok {
					return false
				}
			}

			return entry["message"] == message && entry["service"] == ServiceName
		},
		gen.AlphaString(),
		gen.OneConstOf("debug", "info", "warn", "error"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestNewForWriter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewForWriter(&buf, zapcore.WarnLevel)

	logger.Info("dropped")
	logger.Warn("kept", zap.String("slug", "robe-ete"))
	_ = logger.Sync()

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info entry should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"slug":"robe-ete"`) {
		t.Errorf("expected structured field in output, got %s", out)
	}
}

func TestNew_Environments(t *testing.T) {
	for _, env := range []string{"production", "development", "staging"} {
		logger, err := New(env)
		if err != nil {
			t.Fatalf("New(%q) error = %v", env, err)
		}
		if logger == nil {
			t.Fatalf("New(%q) returned nil logger", env)
		}
	}
}

func TestNewWithDefaults(t *testing.T) {
	t.Setenv("SERVER_ENV", "")
	if NewWithDefaults() == nil {
		t.Fatal("NewWithDefaults returned nil")
	}
}
