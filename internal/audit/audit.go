package audit

import (
	"context"
	"log/slog"
)

// Sink records settlement actions for the audit trail. It is write-only
// and fire-and-forget: implementations log failures instead of returning
// them, so auditing never unwinds a committed transaction.
type Sink interface {
	RecordAction(ctx context.Context, actionType, tableName string, recordID int64, oldValues, newValues string)
}

// LogSink writes audit entries to the structured log. Used when no
// Elasticsearch cluster is configured.
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) RecordAction(ctx context.Context, actionType, tableName string, recordID int64, oldValues, newValues string) {
	slog.InfoContext(ctx, "Audit action",
		"action", actionType,
		"table", tableName,
		"record_id", recordID,
		"old_values", oldValues,
		"new_values", newValues)
}
