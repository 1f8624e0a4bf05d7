// Package otel exports request, operation and permission check traces over
// OTLP.
package otel

import (
	"context"
	"sync"

	eventbus "github.com/hanpama/permgraph/internal/eventbus"
	events "github.com/hanpama/permgraph/internal/events"
	reqid "github.com/hanpama/permgraph/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Setup configures OpenTelemetry and attaches eventbus subscribers.
// If endpoint is empty, no telemetry is configured.
func Setup(endpoint, service string) (func(context.Context) error, error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}
	exp, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	if err != nil {
		return nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(service),
		)),
	)
	otel.SetTracerProvider(tp)

	unsubscribe := newSubscriber(otel.Tracer("permgraph")).register()
	return func(ctx context.Context) error {
		unsubscribe()
		return tp.Shutdown(ctx)
	}, nil
}

type subscriber struct {
	tracer    trace.Tracer
	httpSpans sync.Map // rid -> trace.Span
	gqlSpans  sync.Map // rid -> trace.Span
}

func newSubscriber(tracer trace.Tracer) *subscriber { return &subscriber{tracer: tracer} }

func (s *subscriber) register() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(s.requestStart),
		eventbus.Subscribe(s.requestFinish),
		eventbus.Subscribe(s.operationStart),
		eventbus.Subscribe(s.operationFinish),
		eventbus.Subscribe(s.permissionCheck),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (s *subscriber) requestStart(ctx context.Context, e events.RequestStart) {
	_, span := s.tracer.Start(ctx, "http.request")
	span.SetAttributes(
		semconv.HTTPMethodKey.String(e.Method),
		attribute.String("http.target", e.Path),
		attribute.String("request.id", e.RequestID),
	)
	s.httpSpans.Store(e.RequestID, span)
}

func (s *subscriber) requestFinish(_ context.Context, e events.RequestFinish) {
	v, ok := s.httpSpans.LoadAndDelete(e.RequestID)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
	if e.Subject != "" {
		span.SetAttributes(attribute.String("enduser.id", e.Subject))
	}
	span.End()
}

func (s *subscriber) operationStart(ctx context.Context, e events.OperationStart) {
	parent := ctx
	if v, ok := s.httpSpans.Load(e.RequestID); ok {
		parent = trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	_, span := s.tracer.Start(parent, "graphql.operation")
	span.SetAttributes(
		attribute.String("graphql.operation.name", e.Name),
		attribute.String("graphql.operation.type", e.Type),
	)
	s.gqlSpans.Store(e.RequestID, span)
}

func (s *subscriber) operationFinish(_ context.Context, e events.OperationFinish) {
	v, ok := s.gqlSpans.LoadAndDelete(e.RequestID)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(attribute.Int("graphql.error_count", e.Errors))
	span.End()
}

// permissionCheck records each check as an event on the operation span.
func (s *subscriber) permissionCheck(ctx context.Context, e events.PermissionCheck) {
	rid, _ := reqid.FromContext(ctx)
	v, ok := s.gqlSpans.Load(rid)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.AddEvent("permission.check", trace.WithAttributes(
		attribute.String("graphql.field", e.ObjectType+"."+e.Field),
		attribute.String("permission.name", e.Permission),
		attribute.String("permission.mode", e.Mode),
		attribute.Bool("permission.allowed", e.Allowed),
		attribute.Int64("permission.duration_us", e.Duration.Microseconds()),
	))
	if e.Err != nil {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, "permission check failed")
	}
}
