package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 予約結果のラベル値
const (
	ResultSuccess          = "success"
	ResultCapacityExceeded = "capacity_exceeded"
	ResultAlreadyConfirmed = "already_confirmed"
	ResultDeadlineExceeded = "deadline_exceeded"
	ResultNotFound         = "not_found"
	ResultInvalid          = "invalid"
	ResultError            = "error"
	ExpiredBySweeper       = "sweeper"
	ExpiredByConfirm       = "confirm"
	LockOperationAcquire   = "acquire"
	LockOperationRelease   = "release"
	LockStatusSuccess      = "success"
	LockStatusFailed       = "failed"
	LockStatusNotAcquired  = "not_acquired"
)

// Metrics はアプリケーションのメトリクスを管理する
// nil の *Metrics に対する記録は何もしない
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 予約(Book)の結果（result）
	BookingsTotal *prometheus.CounterVec

	// 支払確定(Confirm)の結果（result）
	ConfirmationsTotal *prometheus.CounterVec

	// 期限切れにした予約数（source: sweeper, confirm）
	ExpiredBookingsTotal *prometheus.CounterVec

	// スイープ1回あたりの所要時間
	SweepDuration prometheus.Histogram

	// 分散ロックの操作時間（operation: acquire/release, status）
	DistributedLockDuration *prometheus.HistogramVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		BookingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookings_total",
				Help: "Total number of booking attempts by result",
			},
			[]string{"result"},
		),
		ConfirmationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_confirmations_total",
				Help: "Total number of payment confirmations by result",
			},
			[]string{"result"},
		),
		ExpiredBookingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bookings_expired_total",
				Help: "Total number of pending bookings moved to expired",
			},
			[]string{"source"},
		),
		SweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "expiry_sweep_duration_seconds",
				Help:    "Duration of one expiry sweep cycle",
				Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10},
			},
		),
		DistributedLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distributed_lock_duration_seconds",
				Help:    "Time spent on distributed lock operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BookingsTotal,
		m.ConfirmationsTotal,
		m.ExpiredBookingsTotal,
		m.SweepDuration,
		m.DistributedLockDuration,
	)

	return m
}

// ObserveBooking は予約結果を記録する
func (m *Metrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.BookingsTotal.WithLabelValues(result).Inc()
}

// ObserveConfirmation は支払確定結果を記録する
func (m *Metrics) ObserveConfirmation(result string) {
	if m == nil {
		return
	}
	m.ConfirmationsTotal.WithLabelValues(result).Inc()
}

// ObserveExpired は期限切れにした予約を記録する
func (m *Metrics) ObserveExpired(source string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ExpiredBookingsTotal.WithLabelValues(source).Add(float64(n))
}

// ObserveSweep はスイープの所要時間を記録する
func (m *Metrics) ObserveSweep(d time.Duration) {
	if m == nil {
		return
	}
	m.SweepDuration.Observe(d.Seconds())
}

// ObserveLock は分散ロック操作の所要時間を記録する
func (m *Metrics) ObserveLock(operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.DistributedLockDuration.WithLabelValues(operation, status).Observe(d.Seconds())
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
