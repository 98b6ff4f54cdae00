// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/model"
)

const namespace = "agendamentos"

// Collector はPrometheusメトリクスを収集する実装。
// 予約サービス・HTTPミドルウェア・集計ジョブから利用する。
type Collector struct {
	reservationsCreated   prometheus.Counter
	reservationConflicts  prometheus.Counter
	reservationsCancelled prometheus.Counter
	lockWait              prometheus.Histogram
	reservationsByStatus  *prometheus.GaugeVec
	httpStatus            *prometheus.CounterVec
	httpDuration          *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		reservationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_created_total",
			Help:      "作成された予約の合計数",
		}),
		reservationConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservation_conflicts_total",
			Help:      "時間帯の重複により拒否された予約作成の合計数",
		}),
		reservationsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reservations_cancelled_total",
			Help:      "取り消された予約の合計数",
		}),
		lockWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reservation_lock_wait_seconds",
			Help:      "機器単位の予約ロック取得までの待ち時間（秒）",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}),
		reservationsByStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reservations",
			Help:      "状態別の予約件数",
		}, []string{"status"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_status_total",
			Help:      "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTPリクエストの処理時間（秒）",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
	}

	reg.MustRegister(
		c.reservationsCreated,
		c.reservationConflicts,
		c.reservationsCancelled,
		c.lockWait,
		c.reservationsByStatus,
		c.httpStatus,
		c.httpDuration,
	)

	return c
}

// RecordReservationCreated は予約作成を記録する。
func (c *Collector) RecordReservationCreated() {
	c.reservationsCreated.Inc()
}

// RecordReservationConflict は重複による予約作成の拒否を記録する。
func (c *Collector) RecordReservationConflict() {
	c.reservationConflicts.Inc()
}

// RecordReservationCancelled は予約の取消を記録する。
func (c *Collector) RecordReservationCancelled() {
	c.reservationsCancelled.Inc()
}

// ObserveLockWait はロック待ち時間を記録する。
func (c *Collector) ObserveLockWait(d time.Duration) {
	c.lockWait.Observe(d.Seconds())
}

// SetReservationCounts は状態別の予約件数ゲージを更新する。
// countsに含まれない状態は0として扱う。
func (c *Collector) SetReservationCounts(counts map[model.ReservationStatus]int) {
	for _, status := range []model.ReservationStatus{
		model.ReservationStatusPending,
		model.ReservationStatusConfirmed,
		model.ReservationStatusCancelled,
	} {
		c.reservationsByStatus.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// ObserveRequestDuration はHTTPリクエストの処理時間を記録する。
func (c *Collector) ObserveRequestDuration(method string, d time.Duration) {
	c.httpDuration.WithLabelValues(method).Observe(d.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
