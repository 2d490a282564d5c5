package observability

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"finitefield.org/orders-admin/internal/platform/requestctx"
)

const tracerName = "finitefield.org/orders-admin/internal/platform/observability"

// Tracer returns the tracer used for console spans.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// TraceMiddleware extracts W3C trace context, starts a server span, and stores the
// trace identifiers on the request context.
func TraceMiddleware() func(http.Handler) http.Handler {
	propagator := propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := Tracer().Start(ctx, fmt.Sprintf("%s %s", r.Method, r.URL.Path), trace.WithSpanKind(trace.SpanKindServer))
			defer span.End()

			span.SetAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
			)

			spanCtx := span.SpanContext()
			ctx = requestctx.WithTrace(ctx, requestctx.TraceInfo{
				TraceID: traceIDString(spanCtx),
				SpanID:  spanIDString(spanCtx),
				Sampled: spanCtx.IsSampled(),
			})

			recorder := newResponseRecorder(w)
			r = r.WithContext(ctx)
			next.ServeHTTP(recorder, r)

			status := recorder.Status()
			span.SetAttributes(statusAttributes(status, routePattern(r))...)
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			}
		})
	}
}

func traceIDString(sc trace.SpanContext) string {
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func spanIDString(sc trace.SpanContext) string {
	if !sc.HasSpanID() {
		return ""
	}
	return sc.SpanID().String()
}
