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
	chatRoute       = "/api/chat"
	chatSpanName    = "api.chat"
	chatEventName   = "chat.request.metrics"
	chatEventDomain = "board"
	tracerName      = "monday-project-generator/api"
)

// chatRequestMetrics accumulates per-request timings for the chat endpoint
// and emits them once as a span plus a mirrored structured log line, so the
// same observability event is visible in traces and in log search.
type chatRequestMetrics struct {
	logger           *log.Logger
	span             trace.Span
	start            time.Time
	aiDuration       time.Duration
	snapshotDuration time.Duration
	applyDuration    time.Duration
	historyTurns     int
	actionsPerformed int
	projectUpdated   bool
	errorStage       string
}

func newChatRequestMetrics(ctx context.Context, logger *log.Logger) (*chatRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, chatSpanName)
	m := &chatRequestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
	}
	return m, spanCtx
}

func (m *chatRequestMetrics) ObserveAI(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.aiDuration = duration
}

func (m *chatRequestMetrics) ObserveSnapshot(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.snapshotDuration = duration
}

func (m *chatRequestMetrics) ObserveApply(duration time.Duration) {
	if duration <= 0 {
		return
	}
	m.applyDuration = duration
}

func (m *chatRequestMetrics) SetHistoryTurns(count int) {
	if count < 0 {
		count = 0
	}
	m.historyTurns = count
}

func (m *chatRequestMetrics) SetActionsPerformed(count int) {
	if count < 0 {
		count = 0
	}
	m.actionsPerformed = count
}

func (m *chatRequestMetrics) SetProjectUpdated(updated bool) {
	m.projectUpdated = updated
}

func (m *chatRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log finalizes the span and emits the observability event. It must be
// called exactly once per request.
func (m *chatRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	totalMs := durationToMillis(time.Since(m.start))
	severityText, severityNumber := severityForStatus(status, err)

	attrs := []attribute.KeyValue{
		attribute.String("http.route", chatRoute),
		attribute.Int("http.status_code", status),
		attribute.Float64("board.chat.total_ms", totalMs),
		attribute.Int("board.chat.history_turns", m.historyTurns),
		attribute.Int("board.chat.actions_performed", m.actionsPerformed),
		attribute.Bool("board.chat.project_updated", m.projectUpdated),
	}
	if m.aiDuration > 0 {
		attrs = append(attrs, attribute.Float64("board.chat.ai_ms", durationToMillis(m.aiDuration)))
	}
	if m.snapshotDuration > 0 {
		attrs = append(attrs, attribute.Float64("board.chat.snapshot_ms", durationToMillis(m.snapshotDuration)))
	}
	if m.applyDuration > 0 {
		attrs = append(attrs, attribute.Float64("board.chat.apply_ms", durationToMillis(m.applyDuration)))
	}
	if m.errorStage != "" {
		attrs = append(attrs, attribute.String("board.chat.error_stage", m.errorStage))
	}
	if err != nil {
		attrs = append(attrs, attribute.String("error.message", err.Error()))
	}

	var traceID string
	if m.span != nil {
		m.span.SetAttributes(attrs...)

		eventAttrs := append([]attribute.KeyValue{
			attribute.String("event.name", chatEventName),
			attribute.String("event.domain", chatEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		}, attrs...)
		m.span.AddEvent("observability.event", trace.WithAttributes(eventAttrs...))

		if err != nil {
			m.span.SetStatus(codes.Error, err.Error())
		} else if status >= http.StatusInternalServerError {
			m.span.SetStatus(codes.Error, http.StatusText(status))
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			traceID = sc.TraceID().String()
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}

	attrMap := make(map[string]any, len(attrs))
	for _, kv := range attrs {
		attrMap[string(kv.Key)] = kv.Value.AsInterface()
	}
	m.logger.WithFields(log.Fields{
		"event.name":      chatEventName,
		"event.domain":    chatEventDomain,
		"attributes":      attrMap,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"trace_id":        traceID,
	}).Info("observability.event")
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
