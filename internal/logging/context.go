package logging

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Context key types
type requestCtxKey struct{}
type ticketCtxKey struct{}

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 4)

	// Trace correlation (from OpenTelemetry)
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}

	if ticketID := TicketIDFromContext(ctx); ticketID != "" {
		fields = append(fields, zap.String("ticket.id", ticketID))
	}

	return fields
}

// WithRequestID stores a request ID in the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext returns the request ID, or "" if absent.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return id
	}
	return ""
}

// WithTicketID stores a ticket ID in the context.
func WithTicketID(ctx context.Context, ticketID string) context.Context {
	if ticketID == "" {
		return ctx
	}
	return context.WithValue(ctx, ticketCtxKey{}, ticketID)
}

// TicketIDFromContext returns the ticket ID, or "" if absent.
func TicketIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ticketCtxKey{}).(string); ok {
		return id
	}
	return ""
}
