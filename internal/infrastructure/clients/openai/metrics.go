package openai

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type chatMetrics struct {
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	requestErrors   metric.Int64Counter
	rateLimitWait   metric.Float64Histogram
}

// chatMetricsOnce guards instrument registration; Complete runs on concurrent
// agent goroutines and all of them may race into the first record call.
var chatMetricsOnce sync.Once
var chatMetricsInst *chatMetrics

func ensureChatMetrics() *chatMetrics {
	chatMetricsOnce.Do(registerChatMetrics)
	return chatMetricsInst
}

func registerChatMetrics() {
	meter := otel.Meter("github.com/claimtriage/roadside/backend/openai")

	requestCount, err := meter.Int64Counter(
		"ai.openai.request.count",
		metric.WithDescription("Number of OpenAI requests"),
	)
	if err != nil {
		return
	}
	requestDuration, err := meter.Float64Histogram(
		"ai.openai.request.duration",
		metric.WithDescription("OpenAI request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}
	requestErrors, err := meter.Int64Counter(
		"ai.openai.request.errors",
		metric.WithDescription("Number of OpenAI request errors"),
	)
	if err != nil {
		return
	}
	rateLimitWait, err := meter.Float64Histogram(
		"ai.openai.rate_limit.wait",
		metric.WithDescription("Time spent waiting for OpenAI rate limiter in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return
	}

	chatMetricsInst = &chatMetrics{
		requestCount:    requestCount,
		requestDuration: requestDuration,
		requestErrors:   requestErrors,
		rateLimitWait:   rateLimitWait,
	}
}

func recordChatMetric(ctx context.Context, model string, statusCode int, duration time.Duration, err error) {
	inst := ensureChatMetrics()
	if inst == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", model),
	}
	if statusCode > 0 {
		attrs = append(attrs, attribute.Int("http.status_code", statusCode))
	}

	inst.requestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	inst.requestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		inst.requestErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func recordChatRateLimitWait(ctx context.Context, model string, wait time.Duration) {
	inst := ensureChatMetrics()
	if inst == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("ai.provider", "openai"),
		attribute.String("ai.model", model),
	}
	inst.rateLimitWait.Record(ctx, float64(wait.Milliseconds()), metric.WithAttributes(attrs...))
}
