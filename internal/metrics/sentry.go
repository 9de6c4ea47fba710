package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
)

const (
	// HTTP status code threshold for considering a request successful
	successStatusCodeThreshold = http.StatusBadRequest
)

// SentryMetrics records outcomes as Sentry spans on the request transaction
type SentryMetrics struct {
	enabled bool
}

// NewSentryMetrics creates a new Sentry metrics client
func NewSentryMetrics(enabled bool) *SentryMetrics {
	return &SentryMetrics{
		enabled: enabled,
	}
}

// RecordAPIRequest records API request metrics
func (m *SentryMetrics) RecordAPIRequest(ctx context.Context, endpoint string, statusCode int, duration time.Duration) {
	if !m.enabled {
		return
	}

	span := sentry.StartSpan(ctx, "api.request")
	defer span.Finish()

	span.SetTag("endpoint", endpoint)
	span.SetTag("status_code", fmt.Sprintf("%d", statusCode))
	span.SetTag("success", fmt.Sprintf("%t", statusCode < successStatusCodeThreshold))

	span.SetData("duration_ms", duration.Milliseconds())
	span.SetData("status_code", statusCode)

	if statusCode < successStatusCodeThreshold {
		span.Status = sentry.SpanStatusOK
	} else {
		span.Status = sentry.SpanStatusInternalError
	}

	span.Description = fmt.Sprintf("API Request: %s", endpoint)
}

// RecordGeneration tags the enclosing transaction and adds a generation span
func (m *SentryMetrics) RecordGeneration(ctx context.Context, outcome Outcome) {
	if !m.enabled {
		return
	}

	if transaction := sentry.TransactionFromContext(ctx); transaction != nil {
		transaction.SetTag("generation.task", outcome.Task)
		transaction.SetTag("generation.kind", outcome.Kind)
		transaction.SetData("llm.input_tokens", outcome.InputTokens)
		transaction.SetData("llm.output_tokens", outcome.OutputTokens)
		transaction.SetData("llm.total_tokens", outcome.TotalTokens)
	}

	span := sentry.StartSpan(ctx, "generation.request")
	defer span.Finish()

	span.SetTag("task", outcome.Task)
	span.SetTag("kind", outcome.Kind)
	span.SetTag("model", outcome.Model)
	span.SetData("duration_ms", outcome.Duration.Milliseconds())
	span.SetData("total_tokens", outcome.TotalTokens)

	span.Status = spanStatusForKind(outcome.Kind)
	span.Description = fmt.Sprintf("Generation: %s", outcome.Task)
}

func spanStatusForKind(kind string) sentry.SpanStatus {
	switch kind {
	case KindOK:
		return sentry.SpanStatusOK
	case "timeout":
		return sentry.SpanStatusDeadlineExceeded
	case "bad_request", "invalid_shape":
		return sentry.SpanStatusInvalidArgument
	case "upstream_error", "invalid_response":
		return sentry.SpanStatusUnavailable
	default:
		return sentry.SpanStatusInternalError
	}
}
