package infrastructure

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"chxlsx/internal/config"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOTelConfigFrom(t *testing.T) {
	cfg := OTelConfigFrom(config.TelemetryConfig{
		MetricsAddr:   ":9090",
		TraceExporter: "stdout",
		ServiceName:   "chxlsx",
	})
	assert.Equal(t, "chxlsx", cfg.ServiceName)
	assert.Equal(t, ServiceVersion, cfg.ServiceVersion)
	assert.Equal(t, "stdout", cfg.TraceExporter)
	assert.True(t, cfg.EnableMetrics)

	assert.False(t, OTelConfigFrom(config.Default().Telemetry).EnableMetrics)
}

func TestOTelInitialization(t *testing.T) {
	var traces bytes.Buffer
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:    "chxlsx-test",
		ServiceVersion: "test",
		TraceExporter:  "stdout",
		EnableMetrics:  true,
		TraceWriter:    &traces,
	}, quietLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	assert.NotNil(t, providers.TracerProvider)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.PrometheusHTTP)

	ctx, span := otel.Tracer("test").Start(context.Background(), "test-operation")
	assert.NotEmpty(t, TraceIDFromContext(ctx))
	span.End()
	assert.Contains(t, traces.String(), "test-operation", "spans are exported synchronously")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, providers.Shutdown(ctx))
}

func TestOTelInitialization_Disabled(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{ServiceName: "chxlsx", TraceExporter: "none"}, quietLogger())
	require.NoError(t, err)

	assert.Nil(t, providers.TracerProvider)
	assert.Nil(t, providers.MeterProvider)
	assert.Nil(t, providers.PrometheusHTTP)
	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestOTelInitialization_Errors(t *testing.T) {
	_, err := InitializeOTel(nil, quietLogger())
	assert.Error(t, err)

	_, err = InitializeOTel(&OTelConfig{ServiceName: "chxlsx", TraceExporter: "jaeger"}, quietLogger())
	assert.Error(t, err)
}

func TestPrometheusEndpoint(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{
		ServiceName:   "chxlsx",
		TraceExporter: "none",
		EnableMetrics: true,
	}, quietLogger())
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	counter, err := otel.Meter("test").Int64Counter("export_rows_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 7)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Regexp(t, `export_rows_total(\{[^}]*\})? 7`, w.Body.String())
}

func TestRepeatedMetricsInitialization(t *testing.T) {
	for i := 0; i < 2; i++ {
		providers, err := InitializeOTel(&OTelConfig{ServiceName: "chxlsx", EnableMetrics: true}, quietLogger())
		require.NoError(t, err, "each provider set uses its own registry")
		require.NoError(t, providers.Shutdown(context.Background()))
	}
}

func TestTraceIDFromContext_NoSpan(t *testing.T) {
	assert.Equal(t, "", TraceIDFromContext(context.Background()))
}
