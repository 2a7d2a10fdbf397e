package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const notificationsTracer = "localhub/notifications"

// TraceFanout starts the span around one notification fan-out
func TraceFanout(ctx context.Context, subjectKind, subjectID, event string) (context.Context, trace.Span) {
	return otel.Tracer(notificationsTracer).Start(ctx, "notifications.fanout",
		trace.WithAttributes(
			attribute.String("subject.kind", subjectKind),
			attribute.String("subject.id", subjectID),
			attribute.String("fanout.event", event),
		),
	)
}

// TraceDelivery starts the span around one adapter attempt
func TraceDelivery(ctx context.Context, adapter, notificationID string, attempt int) (context.Context, trace.Span) {
	return otel.Tracer(notificationsTracer).Start(ctx, "notifications.deliver",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("delivery.adapter", adapter),
			attribute.String("notification.id", notificationID),
			attribute.Int("delivery.attempt", attempt),
		),
	)
}

// RecordError marks span failed
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
