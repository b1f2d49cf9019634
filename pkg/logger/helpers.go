package logger

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// LogRequest logs a completed HTTP request at a level chosen by its status
func LogRequest(l Logger, method, path string, statusCode int, duration time.Duration, fields map[string]interface{}) {
	all := map[string]interface{}{
		"method":      method,
		"path":        path,
		"status_code": statusCode,
		"duration_ms": float64(duration.Microseconds()) / 1000,
	}
	for k, v := range fields {
		all[k] = v
	}

	switch {
	case statusCode >= 500:
		l.ErrorWithFields("HTTP request server error", all)
	case statusCode >= 400:
		l.WarnWithFields("HTTP request client error", all)
	default:
		l.InfoWithFields("HTTP request completed", all)
	}
}

// LogDownload logs the outcome of a single cover download
func LogDownload(l Logger, itemID string, cached bool, err error) {
	entry := l.WithFields(map[string]interface{}{
		"item_id": itemID,
		"cached":  cached,
	})

	switch {
	case err != nil:
		entry.WithError(err).Warn("Cover download failed")
	case cached:
		entry.Debug("Cover already cached")
	default:
		entry.Debug("Cover downloaded")
	}
}

// LogCollectProgress logs collection progress after a batch
func LogCollectProgress(l Logger, collected, maxItems, stall int) {
	percentage := 0.0
	if maxItems > 0 {
		percentage = float64(collected) / float64(maxItems) * 100
	}

	l.WithFields(map[string]interface{}{
		"collected":  collected,
		"max_items":  maxItems,
		"stall":      stall,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	}).Info("Collection progress")
}

// LogComponentStart logs when a component starts
func LogComponentStart(l Logger, component string, settings map[string]interface{}) {
	entry := l.WithField("component", component)
	if len(settings) > 0 {
		entry = entry.WithFields(settings)
	}
	entry.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(l Logger, component string, reason string) {
	l.WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

func (n *nopLogger) Debug(msg string)                                          {}
func (n *nopLogger) Info(msg string)                                           {}
func (n *nopLogger) Warn(msg string)                                           {}
func (n *nopLogger) Error(msg string)                                          {}
func (n *nopLogger) Fatal(msg string)                                          {}
func (n *nopLogger) WithField(key string, value interface{}) Logger            { return n }
func (n *nopLogger) WithFields(fields map[string]interface{}) Logger           { return n }
func (n *nopLogger) WithError(err error) Logger                                { return n }
func (n *nopLogger) WithContext(ctx context.Context) Logger                    { return n }
func (n *nopLogger) DebugWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(msg string, fields map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(msg string, fields map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                               { return nil }
