package otel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	eventbus "github.com/hanpama/permgraph/internal/eventbus"
	events "github.com/hanpama/permgraph/internal/events"
	reqid "github.com/hanpama/permgraph/internal/reqid"
)

func TestSetup_NoEndpoint(t *testing.T) {
	shutdown, err := Setup("", "permgraph")
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))
}

func TestSubscriber_Spans(t *testing.T) {
	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	unsubscribe := newSubscriber(tp.Tracer("test")).register()
	defer unsubscribe()

	ctx, rid := reqid.NewContext(context.Background())
	eventbus.Publish(ctx, events.RequestStart{RequestID: rid, Method: "POST", Path: "/graphql"})
	eventbus.Publish(ctx, events.OperationStart{RequestID: rid, Name: "Me", Type: "query"})
	eventbus.Publish(ctx, events.PermissionCheck{ObjectType: "Query", Field: "me", Permission: "IsAuthenticated", Mode: "sync", Allowed: true, Duration: time.Millisecond})
	eventbus.Publish(ctx, events.PermissionCheck{ObjectType: "Query", Field: "orders", Permission: "CanRead", Mode: "async", Err: errors.New("store down")})
	eventbus.Publish(ctx, events.OperationFinish{RequestID: rid, Name: "Me", Type: "query", Errors: 1})
	eventbus.Publish(ctx, events.RequestFinish{RequestID: rid, Subject: "alice", Status: 200})

	spans := rec.Ended()
	require.Len(t, spans, 2)
	op := spans[0]
	assert.Equal(t, "graphql.operation", op.Name())
	assert.Equal(t, "http.request", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), op.Parent().SpanID())

	var checks int
	for _, ev := range op.Events() {
		if ev.Name == "permission.check" {
			checks++
		}
	}
	assert.Equal(t, 2, checks)
	assert.Contains(t, spans[1].Attributes(), attribute.String("enduser.id", "alice"))
}
