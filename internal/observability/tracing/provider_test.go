package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type nopLifecycle struct{}

func (nopLifecycle) Append(fx.Hook) {}

func TestNewProviderResourceAttributes(t *testing.T) {
	tp, err := NewProvider(nopLifecycle{}, Config{
		ServiceName:    "aquabill-test",
		ServiceVersion: "0.0.1",
		Environment:    "test",
		SamplingRatio:  1,
	}, zap.NewNop())
	require.NoError(t, err)

	recorder := tracetest.NewSpanRecorder()
	tp.RegisterSpanProcessor(recorder)

	_, span := tp.Tracer("tracing-test").Start(context.Background(), "op")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)

	attrs := map[string]string{}
	for _, kv := range ended[0].Resource().Attributes() {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	require.Equal(t, "aquabill-test", attrs["service.name"])
	require.Equal(t, "0.0.1", attrs["service.version"])
	require.Equal(t, "test", attrs["deployment.environment"])
}
