// Package stats は予約件数の定期集計ジョブを提供する。
// 状態別の予約件数をストアから取得し、Prometheusのゲージに反映する。
package stats

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/model"
)

// StatusCounter は状態別の予約件数を返すインターフェース。
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[model.ReservationStatus]int, error)
}

// GaugeSetter は集計結果の反映先インターフェース。
type GaugeSetter interface {
	SetReservationCounts(counts map[model.ReservationStatus]int)
}

// Job は予約件数の集計ジョブ。何度実行しても結果は変わらない。
type Job struct {
	counter StatusCounter
	gauges  GaugeSetter
	logger  *slog.Logger
}

// NewJob は新しいJobを生成する。
func NewJob(counter StatusCounter, gauges GaugeSetter, logger *slog.Logger) *Job {
	return &Job{
		counter: counter,
		gauges:  gauges,
		logger:  logger,
	}
}

// Run は状態別の予約件数を集計してゲージを更新する。
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()

	counts, err := j.counter.CountByStatus(ctx)
	if err != nil {
		j.logger.Error("予約件数の集計に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("予約件数の集計に失敗: %w", err)
	}

	j.gauges.SetReservationCounts(counts)

	j.logger.Debug("予約件数の集計が完了しました",
		slog.Int("pending", counts[model.ReservationStatusPending]),
		slog.Int("confirmed", counts[model.ReservationStatusConfirmed]),
		slog.Int("cancelled", counts[model.ReservationStatusCancelled]),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}

// Start は起動直後に1回集計し、以降intervalごとに集計する。
// ctxがキャンセルされるまでブロックする。個々の実行の失敗はログに記録して継続する。
func (j *Job) Start(ctx context.Context, interval time.Duration) {
	_ = j.Run(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.Run(ctx)
		}
	}
}
