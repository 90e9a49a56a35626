package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fieldsync/ormgen/orm"
)

// EventName is the span event recorded for each statement.
const EventName = "orm.query"

type traceLogger struct{}

// Trace returns a Logger that records an EventName event on the span
// carried by the context. Statements issued outside a recording span are
// ignored.
func Trace() orm.Logger { return traceLogger{} }

func (traceLogger) Log(ctx context.Context, query string, args ...any) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(EventName, trace.WithAttributes(
		attribute.String("db.operation", Verb(query)),
		attribute.String("db.statement", query),
		attribute.Int("db.arg_count", len(args)),
	))
}
