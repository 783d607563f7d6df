package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"stock_technicals/internal/app/di"
	"stock_technicals/internal/app/router"
	"stock_technicals/internal/app/scheduler"
	"stock_technicals/internal/feature/technicals/adapters"
	technicalshandler "stock_technicals/internal/feature/technicals/transport/handler"
	"stock_technicals/internal/feature/technicals/usecase"
	"stock_technicals/internal/platform/config"
	"stock_technicals/internal/platform/http/handler"
	"stock_technicals/internal/platform/metrics"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	// .envを読み込む
	if err := godotenv.Load(".env"); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	di.NewLogger(cfg.Log)
	if err := cfg.RequireAPIKey(); err != nil {
		slog.Error("startup aborted", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	db, err := di.OpenDatabase(cfg.Database)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	sqlDB, err := db.DB()
	if err != nil {
		slog.Error("failed to get sql.DB", "error", err)
		os.Exit(1)
	}
	defer func() { _ = sqlDB.Close() }()

	// Redis（未設定・接続不可ならキャッシュなしで起動）
	rdb := di.NewRedisClient(ctx, cfg.Redis)
	if rdb != nil {
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close Redis client", "error", err)
			}
		}()
	}

	// Metrics
	reg := prometheus.NewRegistry()
	rec := metrics.New(reg)

	// Usecase
	fetchUC, err := di.NewFetchUsecase(cfg, rec)
	if err != nil {
		slog.Error("failed to build fetcher", "error", err)
		os.Exit(1)
	}
	cachedUC, err := di.NewCachedTechnicals(rdb, cfg.Redis, fetchUC)
	if err != nil {
		slog.Error("failed to build read cache", "error", err)
		os.Exit(1)
	}
	historyRepo := adapters.NewTechnicalsRepository(db)
	refreshUC := usecase.NewRefreshUsecase(adapters.NewWatchlistRepository(db), cachedUC, historyRepo)

	// Handler
	technicalsH := technicalshandler.NewTechnicalsHandler(cachedUC, historyRepo)

	probes := map[string]handler.Probe{"db": sqlDB.PingContext}
	if rdb != nil {
		probes["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	// ルータ生成
	r := router.NewRouter(technicalsH, probes, reg)

	// 定期更新
	sched := scheduler.NewScheduler(refreshUC, rec, cfg.Schedule.Force, 0)
	if cfg.Schedule.RefreshCron != "" {
		if err := sched.Register(cfg.Schedule.RefreshCron); err != nil {
			slog.Error("invalid refresh schedule", "error", err)
			os.Exit(1)
		}
		sched.Start()
	}

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: r}
	go func() {
		slog.Info("http server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", "error", err)
	}
	if cfg.Schedule.RefreshCron != "" {
		sched.Stop(shutdownCtx)
	}
}
