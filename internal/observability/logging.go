// Package observability provides logging helpers, metrics and tracing.
package observability

import (
	"context"
	"log/slog"
	"sync/atomic"
)

var logger atomic.Pointer[slog.Logger]

func init() {
	logger.Store(slog.Default())
}

// SetLogger routes observability logging through l. Callers pass the
// application logger during bootstrap.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger.Store(l)
	}
}

func currentLogger() *slog.Logger {
	return logger.Load()
}

// RepoLogger emits debug-level records for repository operations on one table.
type RepoLogger struct {
	table string
}

// NewRepoLogger creates a RepoLogger for the given table.
func NewRepoLogger(table string) *RepoLogger {
	return &RepoLogger{table: table}
}

func (l *RepoLogger) log(ctx context.Context, operation string, attrs []slog.Attr) {
	lg := currentLogger()
	if !lg.Enabled(ctx, slog.LevelDebug) {
		return
	}
	args := make([]any, 0, len(attrs)+2)
	args = append(args, slog.String("table", l.table), slog.String("operation", operation))
	for _, a := range attrs {
		args = append(args, a)
	}
	lg.DebugContext(ctx, "repository "+operation, args...)
}

func (l *RepoLogger) LogCreate(ctx context.Context, attrs ...slog.Attr) {
	l.log(ctx, "create", attrs)
}

func (l *RepoLogger) LogRead(ctx context.Context, attrs ...slog.Attr) {
	l.log(ctx, "read", attrs)
}

func (l *RepoLogger) LogUpdate(ctx context.Context, attrs ...slog.Attr) {
	l.log(ctx, "update", attrs)
}

func (l *RepoLogger) LogDelete(ctx context.Context, attrs ...slog.Attr) {
	l.log(ctx, "delete", attrs)
}

// LogError records a failed repository operation at error level.
func (l *RepoLogger) LogError(ctx context.Context, err error, operation string) {
	currentLogger().ErrorContext(ctx, "repository error",
		slog.String("table", l.table),
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}
