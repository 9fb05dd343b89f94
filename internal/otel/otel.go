package otel

import (
	"context"
	"sync"
	"time"

	eventbus "github.com/hanpama/graphlib/internal/eventbus"
	events "github.com/hanpama/graphlib/internal/events"
	reqid "github.com/hanpama/graphlib/internal/reqid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
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

	sub := &subscriber{tracer: otel.Tracer("graphlib")}
	unsubscribe := sub.register()

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

func (s *subscriber) register() (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(s.httpStart),
		eventbus.Subscribe(s.httpFinish),
		eventbus.Subscribe(s.graphqlStart),
		eventbus.Subscribe(s.graphqlFinish),
		eventbus.Subscribe(s.schemaBuild),
		eventbus.Subscribe(s.subscriptionEvent),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (s *subscriber) httpStart(ctx context.Context, e events.HTTPStart) {
	rid, _ := reqid.FromContext(ctx)
	_, span := s.tracer.Start(ctx, "http.request")
	span.SetAttributes(
		semconv.HTTPMethodKey.String(e.Request.Method),
		attribute.String("http.target", e.Request.URL.Path),
	)
	s.httpSpans.Store(rid, span)
}

func (s *subscriber) httpFinish(ctx context.Context, e events.HTTPFinish) {
	rid, _ := reqid.FromContext(ctx)
	v, ok := s.httpSpans.LoadAndDelete(rid)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(semconv.HTTPStatusCodeKey.Int(e.Status))
	span.End()
}

func (s *subscriber) graphqlStart(ctx context.Context, e events.GraphQLStart) {
	rid, _ := reqid.FromContext(ctx)
	parent := ctx
	if v, ok := s.httpSpans.Load(rid); ok {
		parent = trace.ContextWithSpan(ctx, v.(trace.Span))
	}
	_, span := s.tracer.Start(parent, "graphql.operation")
	span.SetAttributes(
		attribute.String("graphql.operation.name", e.OperationName),
		attribute.String("graphql.operation.type", e.OperationType),
	)
	s.gqlSpans.Store(rid, span)
}

func (s *subscriber) graphqlFinish(ctx context.Context, e events.GraphQLFinish) {
	rid, _ := reqid.FromContext(ctx)
	v, ok := s.gqlSpans.LoadAndDelete(rid)
	if !ok {
		return
	}
	span := v.(trace.Span)
	span.SetAttributes(attribute.Int("graphql.error_count", len(e.Errors)))
	if len(e.Errors) > 0 {
		span.SetStatus(codes.Error, e.Errors[0].Error())
	}
	span.End()
}

func (s *subscriber) schemaBuild(ctx context.Context, e events.SchemaBuild) {
	end := time.Now()
	_, span := s.tracer.Start(ctx, "graphql.schema.build", trace.WithTimestamp(end.Add(-e.Duration)))
	span.SetAttributes(attribute.Int("graphql.schema.types", e.Types))
	if e.Err != nil {
		span.RecordError(e.Err)
		span.SetStatus(codes.Error, e.Err.Error())
	}
	span.End(trace.WithTimestamp(end))
}

func (s *subscriber) subscriptionEvent(ctx context.Context, e events.SubscriptionEvent) {
	end := time.Now()
	_, span := s.tracer.Start(ctx, "graphql.subscription.event", trace.WithTimestamp(end.Add(-e.Duration)))
	span.SetAttributes(
		attribute.String("graphql.operation.name", e.OperationName),
		attribute.Int("graphql.error_count", len(e.Errors)),
	)
	span.End(trace.WithTimestamp(end))
}
