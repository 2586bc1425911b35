package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	listTracerName  = "kanban-api/api"
	listSpanName    = "kanban.api.list"
	listEventName   = "kanban.list.request"
	listEventDomain = "kanban"
)

// listRequestMetrics instruments the list endpoints (visible boards, assigned
// tasks, reviewing tasks). Each request produces one span plus a structured
// "observability.event" log entry carrying the same attributes, so traces and
// logs can be correlated by trace_id.
type listRequestMetrics struct {
	logger *log.Logger
	route  string
	span   trace.Span
	start  time.Time

	authDuration   time.Duration
	fetchDuration  time.Duration
	encodeDuration time.Duration
	itemsReturned  int
	errorStage     string
}

func newListRequestMetrics(ctx context.Context, logger *log.Logger, route string) (*listRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(listTracerName).Start(ctx, listSpanName,
		trace.WithAttributes(attribute.String("http.route", route)))
	m := &listRequestMetrics{
		logger: logger,
		route:  route,
		span:   span,
		start:  time.Now(),
	}
	return m, spanCtx
}

func (m *listRequestMetrics) ObserveAuth(d time.Duration) {
	if d > 0 {
		m.authDuration = d
	}
}

func (m *listRequestMetrics) ObserveFetch(d time.Duration) {
	if d > 0 {
		m.fetchDuration = d
	}
}

func (m *listRequestMetrics) ObserveEncode(d time.Duration) {
	if d > 0 {
		m.encodeDuration = d
	}
}

func (m *listRequestMetrics) SetItemsReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.itemsReturned = count
}

func (m *listRequestMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

// Log finalizes the span and emits the observability event.
func (m *listRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	total := durationToMillis(time.Since(m.start))
	severityText, severityNumber := severityForStatus(status, err)

	attrs := []attribute.KeyValue{
		attribute.String("http.route", m.route),
		attribute.Int("http.status_code", status),
		attribute.Float64("kanban.list.total_ms", total),
		attribute.Int("kanban.list.items_returned", m.itemsReturned),
	}
	if m.authDuration > 0 {
		attrs = append(attrs, attribute.Float64("kanban.list.auth_ms", durationToMillis(m.authDuration)))
	}
	if m.fetchDuration > 0 {
		attrs = append(attrs, attribute.Float64("kanban.list.fetch_ms", durationToMillis(m.fetchDuration)))
	}
	if m.encodeDuration > 0 {
		attrs = append(attrs, attribute.Float64("kanban.list.encode_ms", durationToMillis(m.encodeDuration)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("kanban.list.error_stage", m.errorStage))
	}

	if m.span != nil {
		m.span.SetAttributes(attrs...)
		eventAttrs := append([]attribute.KeyValue{
			attribute.String("event.name", listEventName),
			attribute.String("event.domain", listEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		}, attrs...)
		if err != nil {
			eventAttrs = append(eventAttrs, attribute.String("error.message", err.Error()))
		}
		m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))
		if err != nil || status >= http.StatusInternalServerError {
			desc := "request failed"
			if err != nil {
				desc = err.Error()
			}
			m.span.SetStatus(codes.Error, desc)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	attributes := map[string]any{
		"http.route":                 m.route,
		"http.status_code":           status,
		"kanban.list.total_ms":       total,
		"kanban.list.items_returned": m.itemsReturned,
	}
	if m.authDuration > 0 {
		attributes["kanban.list.auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.fetchDuration > 0 {
		attributes["kanban.list.fetch_ms"] = durationToMillis(m.fetchDuration)
	}
	if m.encodeDuration > 0 {
		attributes["kanban.list.encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		attributes["kanban.list.error_stage"] = m.errorStage
	}

	fields := log.Fields{
		"event.name":      listEventName,
		"event.domain":    listEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      attributes,
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
		}
	}
	if err != nil {
		fields["error"] = err.Error()
	}

	m.logger.WithFields(fields).Info("observability.event")
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
