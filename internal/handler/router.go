package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/metrics"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/middleware"
)

// HealthChecker はDB疎通確認のインターフェース。*sql.DBが満たす。
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	HTTPMetrics       middleware.HTTPRecorder

	// 運用エンドポイント
	HealthChecker HealthChecker
	Gatherer      prometheus.Gatherer

	// 機器・ユーザー
	EquipmentService EquipmentServiceInterface
	UserService      UserServiceInterface

	// 予約
	ReservationService ReservationServiceInterface
	ReservationQuery   ReservationQueryInterface
	ConflictChecker    ConflictChecker
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → Logging → Metrics → SecurityHeaders → CORS → RateLimit(General)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.HTTPMetrics != nil {
		r.Use(middleware.NewMetricsMiddleware(deps.HTTPMetrics))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	equipmentHandler := NewEquipmentHandler(deps.EquipmentService)
	userHandler := NewUserHandler(deps.UserService)
	reservationHandler := NewReservationHandler(deps.ReservationService, deps.ReservationQuery, deps.ConflictChecker)

	// --- 運用エンドポイント ---
	r.Get("/health", healthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	// --- API ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 機器管理
		r.Route("/api/equipment", func(r chi.Router) {
			r.Get("/", equipmentHandler.ListEquipment)
			r.Post("/", equipmentHandler.CreateEquipment)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", equipmentHandler.GetEquipment)
				r.Put("/", equipmentHandler.UpdateEquipment)
				r.Put("/active", equipmentHandler.SetEquipmentActive)

				r.Get("/reservations", reservationHandler.ListUpcomingForEquipment)
				r.Get("/feed", reservationHandler.EquipmentFeed)
				r.Get("/conflicts", reservationHandler.CheckConflict)
			})
		})

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Get("/", userHandler.ListUsers)
			r.Post("/", userHandler.CreateUser)
			r.Get("/{id}", userHandler.GetUser)
			r.Put("/{id}", userHandler.UpdateUser)
		})

		// 予約管理
		r.Route("/api/reservations", func(r chi.Router) {
			r.Get("/", reservationHandler.ListReservations)
			// POST /api/reservations - 予約作成（作成専用レート制限を追加）
			r.With(deps.RateLimiter.ReservationMiddleware()).Post("/", reservationHandler.CreateReservation)
			r.Get("/today", reservationHandler.ListTodaysReservations)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", reservationHandler.GetReservation)
				r.Post("/cancel", reservationHandler.CancelReservation)
			})
		})

		r.Get("/api/stats", reservationHandler.GetStats)
	})

	return r
}

type healthResponse struct {
	Status string `json:"status"`
}

// healthHandler はDBへの疎通を確認するヘルスチェックハンドラーを返す。
func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := checker.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
