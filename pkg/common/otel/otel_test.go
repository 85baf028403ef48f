package otel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/ahrav/drivescan/pkg/common/logger"
)

func TestInitTelemetry_NoEndpointInstallsNoop(t *testing.T) {
	tp, cleanup, err := InitTelemetry(logger.Noop(), Config{ServiceName: "drivescan"})
	require.NoError(t, err)
	defer cleanup(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	assert.False(t, span.SpanContext().IsValid())
	assert.Equal(t, "00000000000000000000000000000000", GetTraceID(ctx))
	assert.NotNil(t, GetMeterProvider())
}

func TestGetTraceID_RecordingSpan(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	assert.Equal(t, span.SpanContext().TraceID().String(), GetTraceID(ctx))
}
