package render

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogBuffer_Wraps(t *testing.T) {
	lb := NewLogBuffer(3)
	for i, msg := range []string{"a", "b", "c", "d"} {
		lb.Add(LogEntry{Time: time.Unix(int64(i), 0), Level: slog.LevelInfo, Message: msg})
	}

	recent := lb.GetRecent(0, slog.LevelDebug)
	require.Len(t, recent, 3)
	assert.Equal(t, "d", recent[0].Message)
	assert.Equal(t, "b", recent[2].Message)
	assert.Equal(t, 3, lb.Len())

	lb.Clear()
	assert.Empty(t, lb.GetRecent(0, slog.LevelDebug))
}

func TestLogBuffer_FiltersLevel(t *testing.T) {
	lb := NewLogBuffer(10)
	lb.Add(LogEntry{Level: slog.LevelDebug, Message: "debug"})
	lb.Add(LogEntry{Level: slog.LevelWarn, Message: "warn"})
	lb.Add(LogEntry{Level: slog.LevelInfo, Message: "info"})

	recent := lb.GetRecent(1, slog.LevelInfo)
	require.Len(t, recent, 1)
	assert.Equal(t, "info", recent[0].Message)

	recent = lb.GetRecent(0, slog.LevelWarn)
	require.Len(t, recent, 1)
	assert.Equal(t, "warn", recent[0].Message)
}

func TestLogBufferHandler(t *testing.T) {
	lb := NewLogBuffer(10)
	level := new(slog.LevelVar)
	level.Set(slog.LevelInfo)
	logger := slog.New(NewLogBufferHandler(lb, level))

	logger.Debug("hidden")
	logger.With("conn", 1).WithGroup("mem").Info("update", "len", 4)

	recent := lb.GetRecent(0, slog.LevelDebug)
	require.Len(t, recent, 1)
	assert.Equal(t, "update conn=1 mem.len=4", recent[0].Message)

	level.Set(slog.LevelDebug)
	logger.Debug("shown")
	assert.Equal(t, 2, lb.Len())
}

func TestFormatLogEntry(t *testing.T) {
	entry := LogEntry{
		Time:    time.Date(2024, 1, 1, 13, 4, 5, 0, time.UTC),
		Level:   slog.LevelWarn,
		Message: "careful",
	}
	assert.Equal(t, "13:04:05 [WRN] careful", FormatLogEntry(entry))
}
