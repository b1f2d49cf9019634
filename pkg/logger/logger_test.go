package logger

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/config"
)

func newBufferLogger(t *testing.T, level string) (Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := NewWithWriter(&config.LoggingConfig{Level: level}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter() error = %v", err)
	}
	return l, &buf
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    zerolog.Level
		wantErr bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"chatty", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseLogLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseLogLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewWithWriterRejectsBadLevel(t *testing.T) {
	if _, err := NewWithWriter(&config.LoggingConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Error("Expected an error for an unknown level")
	}
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, "warn")

	l.Info("quiet message")
	l.Warn("loud message")

	out := buf.String()
	if strings.Contains(out, "quiet message") {
		t.Error("Info message should be filtered at warn level")
	}
	if !strings.Contains(out, "loud message") {
		t.Error("Warn message not found in output")
	}
	if !strings.Contains(out, `"app":"postwall"`) {
		t.Error("Expected app field on every line")
	}
}

func TestWithFieldsDoesNotLeakIntoParent(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")

	child := l.WithFields(map[string]interface{}{
		"item_id": "7300000000000000001",
		"count":   3,
		"cached":  true,
	})
	child.Info("child line")
	l.Info("parent line")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d: %q", len(lines), buf.String())
	}
	if !strings.Contains(lines[0], `"item_id":"7300000000000000001"`) ||
		!strings.Contains(lines[0], `"count":3`) ||
		!strings.Contains(lines[0], `"cached":true`) {
		t.Errorf("Child line missing fields: %s", lines[0])
	}
	if strings.Contains(lines[1], "item_id") {
		t.Errorf("Parent line should not carry child fields: %s", lines[1])
	}
}

func TestWithError(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")

	if l.WithError(nil) != l {
		t.Error("WithError(nil) should return the same logger")
	}

	l.WithError(errors.New("connection reset")).Error("download failed")
	if !strings.Contains(buf.String(), `"error":"connection reset"`) {
		t.Errorf("Error field not found in output: %s", buf.String())
	}
}

func TestFieldTypes(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")

	l.InfoWithFields("typed", map[string]interface{}{
		"elapsed": 1500 * time.Millisecond,
		"ids":     []string{"a", "b"},
		"cause":   errors.New("boom"),
		"ratio":   0.5,
	})

	out := buf.String()
	for _, want := range []string{`"ids":["a","b"]`, `"cause":"boom"`, `"ratio":0.5`, `"elapsed":`} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %s in output: %s", want, out)
		}
	}
}

func TestLogRequestLevels(t *testing.T) {
	tl := NewTestLogger()

	LogRequest(tl, "GET", "/proxy_video", 206, 12*time.Millisecond, nil)
	LogRequest(tl, "GET", "/proxy_video", 400, time.Millisecond, map[string]interface{}{"request_id": "abc"})
	LogRequest(tl, "GET", "/proxy_video", 502, time.Millisecond, nil)

	if !tl.HasMessage("INFO", "completed") {
		t.Error("Expected 2xx to log at info")
	}
	if !tl.HasMessage("WARN", "client error") {
		t.Error("Expected 4xx to log at warn")
	}
	if !tl.HasMessage("ERROR", "server error") {
		t.Error("Expected 5xx to log at error")
	}
	if got := tl.Messages()[1].Fields["request_id"]; got != "abc" {
		t.Errorf("Expected request_id field, got %v", got)
	}
}

func TestLogDownload(t *testing.T) {
	tl := NewTestLogger()

	LogDownload(tl, "1", false, nil)
	LogDownload(tl, "2", true, nil)
	LogDownload(tl, "3", false, errors.New("timeout"))

	if tl.CountLevel("DEBUG") != 2 {
		t.Errorf("Expected 2 debug lines, got %d", tl.CountLevel("DEBUG"))
	}
	if !tl.HasMessage("WARN", "Cover download failed") {
		t.Error("Expected failed download at warn")
	}
	msgs := tl.Messages()
	if msgs[2].Fields["error"] != "timeout" {
		t.Errorf("Expected error field, got %v", msgs[2].Fields)
	}
}

func TestTestLoggerSharesRecordWithChildren(t *testing.T) {
	tl := NewTestLogger()
	tl.WithField("component", "cache").Info("from child")

	msgs := tl.Messages()
	if len(msgs) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Fields["component"] != "cache" {
		t.Errorf("Expected component field, got %v", msgs[0].Fields)
	}

	tl.Clear()
	if len(tl.Messages()) != 0 {
		t.Error("Expected Clear to drop messages")
	}
}

func TestGlobalLogger(t *testing.T) {
	tl := NewTestLogger()
	SetLogger(tl)

	Info("global info")
	WithField("k", "v").Warn("global warn")

	if GetLogger() != Logger(tl) {
		t.Error("GetLogger should return the logger passed to SetLogger")
	}
	if !tl.HasMessage("INFO", "global info") || !tl.HasMessage("WARN", "global warn") {
		t.Errorf("Global helpers did not reach the installed logger: %+v", tl.Messages())
	}
}
