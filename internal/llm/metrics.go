package llm

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const costMeterName = "github.com/abhijyotiba/Flusso-Automation-sub000/internal/llm"

var (
	costRequestHistogram  metric.Float64Histogram
	costMetricsOnce       sync.Once
	costMetricsRegistered bool
)

func initCostMetrics() {
	meter := otel.Meter(costMeterName)
	var err error
	costRequestHistogram, err = meter.Float64Histogram(
		"flusso.oracle.cost.request",
		metric.WithDescription("Cost in EUR per oracle request"),
		metric.WithUnit("eur"),
	)
	if err != nil {
		return
	}
	costMetricsRegistered = true
}

// RecordCostMetrics records cost per request after an oracle call. The task
// and model attributes allow per-stage filtering in observability backends.
func RecordCostMetrics(ctx context.Context, costEUR float64, task, model string) {
	costMetricsOnce.Do(initCostMetrics)
	if !costMetricsRegistered {
		return
	}
	costRequestHistogram.Record(ctx, costEUR, metric.WithAttributes(
		attribute.String("task", task),
		attribute.String("model", model),
	))
}
