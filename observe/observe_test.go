package observe_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fieldsync/ormgen/observe"
)

func TestVerb(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"SELECT `id` FROM `users`":        "select",
		"  insert into t values (?)":      "insert",
		"UPDATE t SET a = ? WHERE id = ?": "update",
		"":                                "other",
	}
	for query, want := range tests {
		assert.Equal(t, want, observe.Verb(query), query)
	}
}

func TestSlog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	observe.Slog(l, slog.LevelDebug).Log(t.Context(), "SELECT 1 WHERE id = ?", 42)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "orm query", rec["msg"])
	assert.Equal(t, "select", rec["verb"])
	assert.Equal(t, "SELECT 1 WHERE id = ?", rec["sql"])
	assert.Equal(t, []any{float64(42)}, rec["args"])
}

func TestSlogBelowLevelIsSilent(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	observe.Slog(l, slog.LevelDebug).Log(t.Context(), "SELECT 1")

	assert.Empty(t, buf.String())
}

func TestTrace(t *testing.T) {
	t.Parallel()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("observe_test").Start(t.Context(), "refresh")
	observe.Trace().Log(ctx, "SELECT `name` FROM `primaries` WHERE `id` = ? LIMIT 1", 1)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	events := spans[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, observe.EventName, events[0].Name)

	attrs := map[string]any{}
	for _, kv := range events[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	assert.Equal(t, "select", attrs["db.operation"])
	assert.Equal(t, int64(1), attrs["db.arg_count"])
}

func TestTraceWithoutSpanIsNoop(t *testing.T) {
	t.Parallel()

	assert.NotPanics(t, func() {
		observe.Trace().Log(t.Context(), "SELECT 1")
	})
}

func TestCounter(t *testing.T) {
	t.Parallel()

	c := observe.NewCounter("ormgen_test")
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c.Collector()))

	c.Log(t.Context(), "SELECT 1")
	c.Log(t.Context(), "select 2")
	c.Log(t.Context(), "UPDATE t SET a = 1")

	assert.InDelta(t, 2, testutil.ToFloat64(c.Collector().WithLabelValues("select")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.Collector().WithLabelValues("update")), 0)
	assert.Equal(t, 2, testutil.CollectAndCount(c.Collector()))
}

func TestMulti(t *testing.T) {
	t.Parallel()

	a := observe.NewCounter("a")
	b := observe.NewCounter("b")
	m := observe.Multi(a, nil, b)

	m.Log(t.Context(), "DELETE FROM t WHERE id = ?", 1)

	assert.InDelta(t, 1, testutil.ToFloat64(a.Collector().WithLabelValues("delete")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(b.Collector().WithLabelValues("delete")), 0)
}
