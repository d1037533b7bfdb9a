package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry 创建自定义 Prometheus Registry，并注册常用采集器
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler 返回 Prometheus 指标 HTTP 处理器
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// AppMetrics 载荷业务指标
type AppMetrics struct {
	TxFrames      *prometheus.CounterVec // labels: kind=text|binary
	TxBytes       prometheus.Counter
	TxQueueDepth  prometheus.Gauge
	TxQueueRetry  prometheus.Counter
	TxQueueDrop   prometheus.Counter
	RxFrames      *prometheus.CounterVec // labels: class=command|relay|dropped
	RelayForward  prometheus.Counter
	RelayDrop     prometheus.Counter
	ImagePackets  prometheus.Counter
	Commands      *prometheus.CounterVec // labels: verb
	WatchdogKicks *prometheus.CounterVec // labels: task
	TelemetrySent prometheus.Counter
}

// NewAppMetrics 注册并返回业务指标
func NewAppMetrics(reg *prometheus.Registry) *AppMetrics {
	m := &AppMetrics{
		TxFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "radio_tx_frames_total",
			Help: "Frames written to the radio link.",
		}, []string{"kind"}),
		TxBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radio_tx_bytes_total",
			Help: "Bytes written to the radio link.",
		}),
		TxQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "radio_tx_queue_depth",
			Help: "Current transmit queue depth.",
		}),
		TxQueueRetry: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radio_tx_queue_retry_total",
			Help: "Transmit submissions retried on a full queue.",
		}),
		TxQueueDrop: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radio_tx_queue_drop_total",
			Help: "Transmit submissions abandoned after retries.",
		}),
		RxFrames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "radio_rx_frames_total",
			Help: "Inbound frames by classification.",
		}, []string{"class"}),
		RelayForward: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_forwarded_total",
			Help: "Relay frames re-emitted downlink.",
		}),
		RelayDrop: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_dropped_total",
			Help: "Relay frames dropped by the rate window.",
		}),
		ImagePackets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "image_packets_total",
			Help: "Image codec packets submitted downlink.",
		}),
		Commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "command_frames_total",
			Help: "Command frames processed by verb.",
		}, []string{"verb"}),
		WatchdogKicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "watchdog_kick_total",
			Help: "Watchdog kicks by task.",
		}, []string{"task"}),
		TelemetrySent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "telemetry_frames_total",
			Help: "Telemetry sentences submitted downlink.",
		}),
	}
	reg.MustRegister(
		m.TxFrames, m.TxBytes, m.TxQueueDepth, m.TxQueueRetry, m.TxQueueDrop,
		m.RxFrames, m.RelayForward, m.RelayDrop, m.ImagePackets, m.Commands,
		m.WatchdogKicks, m.TelemetrySent,
	)
	return m
}
