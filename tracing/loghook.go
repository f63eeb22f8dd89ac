package tracing

import (
	"context"
	"log/slog"
)

// A LogTracer writes paging tasks to a structured logger. Frame collisions
// are logged as warnings, translations at info level and the rest at debug
// level.
type LogTracer struct {
	logger *slog.Logger
}

// NewLogTracer creates a LogTracer. A nil logger means slog.Default().
func NewLogTracer(logger *slog.Logger) *LogTracer {
	if logger == nil {
		logger = slog.Default()
	}

	return &LogTracer{logger: logger}
}

// RecordTask logs the task.
func (t *LogTracer) RecordTask(task Task) {
	level := slog.LevelDebug
	msg := task.Kind

	switch {
	case task.Collides:
		level = slog.LevelWarn
		msg = "frame already in use by another page"
	case task.Kind == KindTranslate:
		level = slog.LevelInfo
	}

	t.logger.Log(context.Background(), level, msg,
		"unit", task.Where,
		"logical_addr", task.LogicalAddr,
		"page", task.PageNumber,
		"frame", task.Frame,
		"physical_addr", task.PhysicalAddr,
		"block", task.Block,
		"resident", task.Resident,
	)
}
