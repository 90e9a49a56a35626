// Package observe provides orm.Logger implementations that report executed
// statements to log/slog, OpenTelemetry and Prometheus.
//
//	db := orm.New(sqlDB, orm.PostgreSQL).Debug(observe.Multi(
//		observe.Slog(slog.Default(), slog.LevelDebug),
//		observe.Trace(),
//		counter,
//	))
package observe

import (
	"context"
	"strings"

	"github.com/fieldsync/ormgen/orm"
)

// Multi returns a Logger that forwards every statement to each non-nil
// logger in order.
func Multi(loggers ...orm.Logger) orm.Logger {
	out := make(multi, 0, len(loggers))
	for _, l := range loggers {
		if l != nil {
			out = append(out, l)
		}
	}
	return out
}

type multi []orm.Logger

func (m multi) Log(ctx context.Context, query string, args ...any) {
	for _, l := range m {
		l.Log(ctx, query, args...)
	}
}

// Verb returns the lower-cased leading keyword of query ("select",
// "insert", ...), or "other" when the query is blank.
func Verb(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "other"
	}
	return strings.ToLower(fields[0])
}
