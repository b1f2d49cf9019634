// Package logger provides the structured logging used across postwall.
//
// It wraps zerolog behind a small Logger interface. Interactive terminals
// get coloured console output; anything else gets one JSON object per line.
//
//	if err := logger.Initialize(&cfg.Logging); err != nil {
//	    return err
//	}
//	log := logger.GetLogger().WithField("component", "collector")
//	log.InfoWithFields("Batch merged", map[string]interface{}{"added": 12})
//
// Tests use NewTestLogger to capture messages or NewNopLogger to discard them.
package logger
