package push

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/domainledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewPusherSelectsExporter(t *testing.T) {
	log := zap.NewNop()
	assert.Nil(t, NewPusher(config.Config{}, log))
	assert.Nil(t, NewPusher(config.Config{Metrics: config.MetricsConfig{Exporter: ExporterRemoteWrite}}, log))
	assert.Nil(t, NewPusher(config.Config{Metrics: config.MetricsConfig{Exporter: "statsd", Endpoint: "http://x"}}, log))

	rw := NewPusher(config.Config{Metrics: config.MetricsConfig{Exporter: ExporterRemoteWrite, Endpoint: "http://prom/api/v1/write"}}, log)
	assert.IsType(t, &RemoteWritePusher{}, rw)

	pg := NewPusher(config.Config{AppName: "worker", Metrics: config.MetricsConfig{Exporter: ExporterPushgateway, Endpoint: "http://pg:9091"}}, log)
	assert.IsType(t, &PushgatewayPusher{}, pg)
}

func TestRemoteWritePusherSendsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "domainledger_test_total", Help: "test"}, []string{"tier"})
	registry.MustRegister(counter)
	counter.WithLabelValues("direct").Add(2)

	var got prompb.WriteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "snappy", r.Header.Get("Content-Encoding"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		raw, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, got.Unmarshal(raw))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	pusher := NewRemoteWritePusher(srv.URL, "token")
	pusher.now = func() time.Time { return time.UnixMilli(1000) }
	require.NoError(t, pusher.Push(context.Background(), registry))

	require.Len(t, got.Timeseries, 1)
	assert.Equal(t, 2.0, got.Timeseries[0].Samples[0].Value)
	assert.Equal(t, int64(1000), got.Timeseries[0].Samples[0].Timestamp)
	assert.Equal(t, "__name__", got.Timeseries[0].Labels[0].Name)
	assert.Equal(t, "domainledger_test_total", got.Timeseries[0].Labels[0].Value)
}

func TestRemoteWritePusherReportsStatus(t *testing.T) {
	registry := prometheus.NewRegistry()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "domainledger_gauge", Help: "test"})
	registry.MustRegister(gauge)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewRemoteWritePusher(srv.URL, "").Push(context.Background(), registry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
