package observe

import (
	"context"
	"log/slog"

	"github.com/fieldsync/ormgen/orm"
)

type slogLogger struct {
	l     *slog.Logger
	level slog.Level
}

// Slog returns a Logger writing one record per statement at level.
// A nil l uses slog.Default().
func Slog(l *slog.Logger, level slog.Level) orm.Logger {
	if l == nil {
		l = slog.Default()
	}
	return slogLogger{l: l, level: level}
}

func (s slogLogger) Log(ctx context.Context, query string, args ...any) {
	if !s.l.Enabled(ctx, s.level) {
		return
	}
	s.l.LogAttrs(ctx, s.level, "orm query",
		slog.String("verb", Verb(query)),
		slog.String("sql", query),
		slog.Any("args", args),
	)
}
