package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/config"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/database"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/equipment"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/handler"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/logger"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/metrics"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/middleware"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/repository"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/reservation"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/security"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/seed"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/user"
	"github.com/nathanufpb/Sistema-de-Agendamentos-cmfam/internal/worker/stats"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	// SIGINTまたはSIGTERMでキャンセルされるコンテキスト
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandSeed:
		return runSeed(ctx, cfg)
	default:
		return runServe(ctx, cfg)
	}
}

// application はserveモードで共有する依存関係をまとめた構造体。
type application struct {
	db          *sql.DB
	registry    *prometheus.Registry
	metrics     *metrics.Collector
	rateLimiter *middleware.RateLimiter

	reservationRepo    *repository.PostgresReservationRepo
	equipmentService   *equipment.Service
	userService        *user.Service
	reservationService *reservation.Service
	queryService       *reservation.QueryService
}

// newApplication はリポジトリ・サービス・メトリクスをワイヤリングする。
func newApplication(db *sql.DB, cfg *config.Config) *application {
	// 1. メトリクス
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	// 2. リポジトリの初期化
	equipmentRepo := repository.NewPostgresEquipmentRepo(db)
	userRepo := repository.NewPostgresUserRepo(db)
	reservationRepo := repository.NewPostgresReservationRepo(db, cfg.StoreRetryMax)

	// 3. ドメインサービスの初期化
	sanitizer := security.NewTextSanitizer()
	equipmentService := equipment.NewService(equipmentRepo, sanitizer)
	userService := user.NewService(userRepo, sanitizer)
	reservationService := reservation.NewService(equipmentRepo, userRepo, reservationRepo, sanitizer, collector)
	queryService := reservation.NewQueryService(reservationRepo, equipmentRepo)

	return &application{
		db:          db,
		registry:    registry,
		metrics:     collector,
		rateLimiter: middleware.NewRateLimiter(middleware.NewRateLimiterConfig(cfg.RateLimitGeneral, cfg.RateLimitReservation)),

		reservationRepo:    reservationRepo,
		equipmentService:   equipmentService,
		userService:        userService,
		reservationService: reservationService,
		queryService:       queryService,
	}
}

// router はHTTPルーターを構築する。
func (a *application) router(cfg *config.Config) http.Handler {
	return handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       a.rateLimiter,
		HTTPMetrics:       a.metrics,

		HealthChecker: a.db,
		Gatherer:      a.registry,

		EquipmentService: a.equipmentService,
		UserService:      a.userService,

		ReservationService: a.reservationService,
		ReservationQuery:   a.queryService,
		ConflictChecker:    a.reservationService.Detector(),
	})
}

func (a *application) close() {
	a.rateLimiter.Stop()
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.DefaultPoolConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := database.Ping(ctx, db, 5*time.Second); err != nil {
		db.Close()
		return nil, err
	}
	slog.Info("database connection established")
	return db, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーと予約件数の集計ジョブを起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	app := newApplication(db, cfg)
	defer app.close()

	if cfg.SeedOnStart {
		if _, err := seed.NewSeeder(app.equipmentService, app.userService, slog.Default()).Run(ctx); err != nil {
			return fmt.Errorf("seed failed: %w", err)
		}
	}

	// 予約件数の集計ジョブをバックグラウンドで起動
	jobCtx, cancelJob := context.WithCancel(ctx)
	defer cancelJob()
	statsJob := stats.NewJob(app.reservationRepo, app.metrics, slog.Default())
	go statsJob.Start(jobCtx, cfg.StatsInterval)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      app.router(cfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := database.Version(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to read migration version: %w", err)
	}

	slog.Info("database migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Bool("dirty", dirty),
	)
	return nil
}

// runSeed は機器・ユーザーが空の場合にサンプルデータを投入する。
func runSeed(ctx context.Context, cfg *config.Config) error {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	sanitizer := security.NewTextSanitizer()
	seeder := seed.NewSeeder(
		equipment.NewService(repository.NewPostgresEquipmentRepo(db), sanitizer),
		user.NewService(repository.NewPostgresUserRepo(db), sanitizer),
		slog.Default(),
	)
	if _, err := seeder.Run(ctx); err != nil {
		return fmt.Errorf("seed failed: %w", err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
