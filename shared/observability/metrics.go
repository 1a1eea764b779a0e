package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
)

// Metrics holds the service instruments. A nil *Metrics records nothing.
type Metrics struct {
	chatTurns      otelmetric.Int64Counter
	oracleLatency  otelmetric.Float64Histogram
	escalations    otelmetric.Int64Counter
	notifyFailures otelmetric.Int64Counter
	faqSearches    otelmetric.Int64Counter
	faqResults     otelmetric.Int64Histogram
}

// NewMetrics registers instruments on the given provider
func NewMetrics(provider otelmetric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter("campus-support")
	m := &Metrics{}
	var err error

	if m.chatTurns, err = meter.Int64Counter("assistant_chat_turns_total",
		otelmetric.WithDescription("Chat turns by outcome")); err != nil {
		return nil, err
	}
	if m.oracleLatency, err = meter.Float64Histogram("assistant_oracle_latency_seconds",
		otelmetric.WithDescription("Latency of text-generation calls"),
		otelmetric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.escalations, err = meter.Int64Counter("support_escalations_total",
		otelmetric.WithDescription("Tickets created by escalation")); err != nil {
		return nil, err
	}
	if m.notifyFailures, err = meter.Int64Counter("support_notify_failures_total",
		otelmetric.WithDescription("Staff notifications that failed")); err != nil {
		return nil, err
	}
	if m.faqSearches, err = meter.Int64Counter("faq_searches_total",
		otelmetric.WithDescription("FAQ searches")); err != nil {
		return nil, err
	}
	if m.faqResults, err = meter.Int64Histogram("faq_search_results",
		otelmetric.WithDescription("Results returned per FAQ search")); err != nil {
		return nil, err
	}
	return m, nil
}

// ChatTurn counts a finished turn: ok, invalid, unavailable or timeout
func (m *Metrics) ChatTurn(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.chatTurns.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", outcome)))
}

// OracleLatency records one oracle call
func (m *Metrics) OracleLatency(ctx context.Context, d time.Duration, outcome string) {
	if m == nil {
		return
	}
	m.oracleLatency.Record(ctx, d.Seconds(), otelmetric.WithAttributes(attribute.String("outcome", outcome)))
}

// Escalation counts a created ticket
func (m *Metrics) Escalation(ctx context.Context, category, priority string) {
	if m == nil {
		return
	}
	m.escalations.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("category", category),
		attribute.String("priority", priority),
	))
}

// NotifyFailure counts a failed staff notification
func (m *Metrics) NotifyFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.notifyFailures.Add(ctx, 1)
}

// FAQSearch records a search and its result count
func (m *Metrics) FAQSearch(ctx context.Context, results int) {
	if m == nil {
		return
	}
	m.faqSearches.Add(ctx, 1)
	m.faqResults.Record(ctx, int64(results))
}
