// Package monitoring 服务运行指标
package monitoring

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics 预测服务指标，所有字段原子更新
type Metrics struct {
	httpRequests      atomic.Int64
	httpServerErrors  atomic.Int64
	predictions       [2]atomic.Int64
	validationErrors  atomic.Int64
	inferenceErrors   atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	inferenceNanos    atomic.Int64
	inferenceNanosMax atomic.Int64
	wsConnections     atomic.Int64

	startTime time.Time
}

// Snapshot 指标快照
type Snapshot struct {
	HTTPRequests       int64   `json:"http_requests"`
	HTTPServerErrors   int64   `json:"http_server_errors"`
	PredictionsHealthy int64   `json:"predictions_no_disease"`
	PredictionsDisease int64   `json:"predictions_disease"`
	ValidationErrors   int64   `json:"validation_errors"`
	InferenceErrors    int64   `json:"inference_errors"`
	CacheHits          int64   `json:"cache_hits"`
	CacheMisses        int64   `json:"cache_misses"`
	AvgInferenceMillis float64 `json:"avg_inference_ms"`
	MaxInferenceMillis float64 `json:"max_inference_ms"`
	WSConnections      int64   `json:"ws_connections"`
	Goroutines         int     `json:"goroutines"`
	UptimeSeconds      float64 `json:"uptime_seconds"`
}

// NewMetrics 创建指标收集器
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordHTTPRequest 记录一次HTTP请求
func (m *Metrics) RecordHTTPRequest(status int) {
	m.httpRequests.Add(1)
	if status >= 500 {
		m.httpServerErrors.Add(1)
	}
}

// RecordPrediction 记录一次成功预测
func (m *Metrics) RecordPrediction(label int, latency time.Duration, cached bool) {
	if label == 0 || label == 1 {
		m.predictions[label].Add(1)
	}
	if cached {
		m.cacheHits.Add(1)
		return
	}
	m.cacheMisses.Add(1)
	nanos := latency.Nanoseconds()
	if nanos < 0 {
		nanos = 0
	}
	m.inferenceNanos.Add(nanos)
	updateAtomicMax(&m.inferenceNanosMax, nanos)
}

// RecordInferenceError 记录推理失败
func (m *Metrics) RecordInferenceError() {
	m.inferenceErrors.Add(1)
}

// RecordValidationError 记录请求校验失败
func (m *Metrics) RecordValidationError() {
	m.validationErrors.Add(1)
}

// WSConnected WebSocket连接数加一，返回的函数在断开时调用
func (m *Metrics) WSConnected() func() {
	m.wsConnections.Add(1)
	return func() { m.wsConnections.Add(-1) }
}

// Snapshot 获取当前指标
func (m *Metrics) Snapshot() Snapshot {
	misses := m.cacheMisses.Load()
	avg := 0.0
	if misses > 0 {
		avg = float64(m.inferenceNanos.Load()) / float64(misses) / float64(time.Millisecond)
	}
	return Snapshot{
		HTTPRequests:       m.httpRequests.Load(),
		HTTPServerErrors:   m.httpServerErrors.Load(),
		PredictionsHealthy: m.predictions[0].Load(),
		PredictionsDisease: m.predictions[1].Load(),
		ValidationErrors:   m.validationErrors.Load(),
		InferenceErrors:    m.inferenceErrors.Load(),
		CacheHits:          m.cacheHits.Load(),
		CacheMisses:        misses,
		AvgInferenceMillis: avg,
		MaxInferenceMillis: float64(m.inferenceNanosMax.Load()) / float64(time.Millisecond),
		WSConnections:      m.wsConnections.Load(),
		Goroutines:         runtime.NumGoroutine(),
		UptimeSeconds:      time.Since(m.startTime).Seconds(),
	}
}

// PrometheusText 导出Prometheus文本格式
func (s Snapshot) PrometheusText() string {
	var b strings.Builder
	write := func(name, kind, help string, value interface{}) {
		fmt.Fprintf(&b, "# HELP %s %s\n", name, help)
		fmt.Fprintf(&b, "# TYPE %s %s\n", name, kind)
		switch v := value.(type) {
		case float64:
			fmt.Fprintf(&b, "%s %.6f\n", name, v)
		default:
			fmt.Fprintf(&b, "%s %v\n", name, v)
		}
	}
	write("cardiorisk_http_requests_total", "counter", "HTTP requests served.", s.HTTPRequests)
	write("cardiorisk_http_server_errors_total", "counter", "HTTP responses with status >= 500.", s.HTTPServerErrors)
	fmt.Fprintf(&b, "# HELP cardiorisk_predictions_total Predictions by label.\n")
	fmt.Fprintf(&b, "# TYPE cardiorisk_predictions_total counter\n")
	fmt.Fprintf(&b, "cardiorisk_predictions_total{label=\"0\"} %d\n", s.PredictionsHealthy)
	fmt.Fprintf(&b, "cardiorisk_predictions_total{label=\"1\"} %d\n", s.PredictionsDisease)
	write("cardiorisk_validation_errors_total", "counter", "Requests rejected before inference.", s.ValidationErrors)
	write("cardiorisk_inference_errors_total", "counter", "Failed model invocations.", s.InferenceErrors)
	write("cardiorisk_cache_hits_total", "counter", "Predictions served from cache.", s.CacheHits)
	write("cardiorisk_cache_misses_total", "counter", "Predictions computed by the model.", s.CacheMisses)
	write("cardiorisk_inference_latency_ms_avg", "gauge", "Average model latency.", s.AvgInferenceMillis)
	write("cardiorisk_inference_latency_ms_max", "gauge", "Maximum model latency.", s.MaxInferenceMillis)
	write("cardiorisk_ws_connections", "gauge", "Open WebSocket prediction streams.", s.WSConnections)
	write("cardiorisk_goroutines", "gauge", "Live goroutines.", s.Goroutines)
	write("cardiorisk_uptime_seconds", "gauge", "Seconds since start.", s.UptimeSeconds)
	return b.String()
}

func updateAtomicMax(target *atomic.Int64, value int64) {
	for {
		current := target.Load()
		if value <= current {
			return
		}
		if target.CompareAndSwap(current, value) {
			return
		}
	}
}
