package otel

import (
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// NewManualMeterProvider returns an SDK meter provider backed by a manual
// reader so callers (mostly tests) can collect recorded values on demand.
func NewManualMeterProvider() (metric.MeterProvider, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	return sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)), reader
}
