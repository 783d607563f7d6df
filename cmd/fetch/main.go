// Command fetch downloads prices, computes indicators and writes a tidy CSV.
//
//	fetch [-config config.yaml] [-recos recos.json] [-from-db] [-to-db] [-force] [-out data/technical_data_tidy.csv] [TICKER...]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/gorm"

	"stock_technicals/internal/app/di"
	"stock_technicals/internal/feature/technicals/adapters"
	"stock_technicals/internal/feature/technicals/domain/entity"
	"stock_technicals/internal/feature/technicals/usecase"
	"stock_technicals/internal/platform/config"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	recosPath := flag.String("recos", "", "recommendations JSON file to read tickers from")
	outPath := flag.String("out", "data/technical_data_tidy.csv", "tidy CSV output path")
	force := flag.Bool("force", false, "ignore the file cache")
	fromDB := flag.Bool("from-db", false, "add active watchlist tickers")
	toDB := flag.Bool("to-db", false, "register tickers and persist indicator rows")
	flag.Parse()

	if err := godotenv.Load(".env"); err != nil {
		log.Println("[INFO] .env not found; using system environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	di.NewLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *recosPath, *outPath, *force, *fromDB, *toDB, flag.Args()); err != nil {
		slog.Error("fetch failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, recosPath, outPath string, force, fromDB, toDB bool, args []string) error {
	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	tickers := append([]string{}, args...)
	if recosPath != "" {
		fromRecos, err := adapters.TickersFromRecosJSON(recosPath)
		if err != nil {
			return err
		}
		tickers = append(tickers, fromRecos...)
	}

	var db *gorm.DB
	if fromDB || toDB {
		var err error
		if db, err = di.OpenDatabase(cfg.Database); err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer func() { _ = sqlDB.Close() }()
		}
	}
	if fromDB {
		codes, err := adapters.NewWatchlistRepository(db).ListActiveCodes(ctx)
		if err != nil {
			return fmt.Errorf("list active codes: %w", err)
		}
		tickers = append(tickers, codes...)
	}

	tickers = entity.NormalizeTickers(tickers)
	if len(tickers) == 0 {
		return fmt.Errorf("no tickers given (pass arguments, -recos or -from-db)")
	}

	fetchUC, err := di.NewFetchUsecase(cfg, nil)
	if err != nil {
		return err
	}

	start := time.Now()
	var results []entity.Result
	if toDB {
		watchlist := adapters.NewWatchlistRepository(db)
		if err := watchlist.AddCodes(ctx, tickers); err != nil {
			return fmt.Errorf("register tickers: %w", err)
		}
		refreshUC := usecase.NewRefreshUsecase(watchlist, &collector{inner: fetchUC, out: &results}, adapters.NewTechnicalsRepository(db))
		summary := refreshUC.Refresh(ctx, tickers, force)
		slog.Info("persisted indicator rows", "tickers", summary.Persisted)
	} else {
		results = fetchUC.FetchWithStatus(ctx, tickers, force)
	}

	n, err := adapters.WriteTidyCSVFile(outPath, results)
	if err != nil {
		return err
	}
	for _, r := range results {
		slog.Info("ticker done", "ticker", r.Ticker, "status", r.Status.String(), "rows", len(r.Rows))
	}
	slog.Info("wrote tidy csv", "path", outPath, "rows", n, "tickers", len(results), "elapsed", time.Since(start))
	return nil
}

// collector keeps the results handed to the refresh usecase so they can be exported too.
type collector struct {
	inner usecase.StatusFetcher
	out   *[]entity.Result
}

func (c *collector) FetchWithStatus(ctx context.Context, tickers []string, force bool) []entity.Result {
	res := c.inner.FetchWithStatus(ctx, tickers, force)
	*c.out = res
	return res
}
