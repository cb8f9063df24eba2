package testutil

import (
	"log/slog"
	"testing"
)

func TestBufferedSlogHandler(t *testing.T) {
	t.Run("captures records with attrs", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("derive pass", slog.String("wave", "wave2"))
		logger.Error("bad row", slog.Int("subject_id", 305))

		if got := len(handler.Records()); got != 2 {
			t.Errorf("expected 2 records, got %d", got)
		}
		if !handler.ContainsMessage("derive pass") {
			t.Error("expected to find 'derive pass'")
		}
		if !handler.ContainsAttr("wave", "wave2") {
			t.Error("expected to find attribute wave=wave2")
		}
	})

	t.Run("filters by level", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Debug("debug msg")
		logger.Info("info msg")
		logger.Warn("warn msg")

		if got := len(handler.RecordsByLevel(slog.LevelWarn)); got != 1 {
			t.Errorf("expected 1 warn record, got %d", got)
		}
	})

	t.Run("clear discards records", func(t *testing.T) {
		logger, handler := NewTestLogger(t)

		logger.Info("before clear")
		handler.Clear()

		if got := len(handler.Records()); got != 0 {
			t.Errorf("expected 0 records after clear, got %d", got)
		}
	})
}
