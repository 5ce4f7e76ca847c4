package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/wealthapp/wealth-backend/internal/adapter/alphavantage"
	"github.com/wealthapp/wealth-backend/internal/adapter/ecb"
	"github.com/wealthapp/wealth-backend/internal/adapter/repository/postgres"
	"github.com/wealthapp/wealth-backend/internal/config"
	"github.com/wealthapp/wealth-backend/internal/scheduler"
	"github.com/wealthapp/wealth-backend/internal/usecase/balance"
	"github.com/wealthapp/wealth-backend/internal/usecase/customassets"
	"github.com/wealthapp/wealth-backend/internal/usecase/dashboard"
	"github.com/wealthapp/wealth-backend/internal/usecase/exchange"
	"github.com/wealthapp/wealth-backend/internal/usecase/stocks"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] wealth worker starting...")

	// 1. Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// 2. Setup database
	db, err := postgres.NewDB(cfg.DSN())
	if err != nil {
		log.Fatalf("[FATAL] connect to database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("[FATAL] ensure schema: %v", err)
	}

	// 3. Initialize repositories (Postgres)
	rateRepo := postgres.NewExchangeRateRepository(db)
	tickerRepo := postgres.NewTickerRepository(db)
	userRepo := postgres.NewUserRepository(db)
	balanceRepo := postgres.NewBalanceRepository(db)

	// 4. Initialize the conversion core
	rateCache := exchange.NewRateCache(rateRepo, cfg.RefreshInterval())
	converter := exchange.NewConverter(rateCache, cfg.DefaultConversionRates())
	interpolator := balance.NewInterpolator(converter)

	// 5. Initialize services and external adapters
	market := alphavantage.New(cfg.AlphaVantage.APIKey)
	stocksService := stocks.NewService(tickerRepo, userRepo, balanceRepo, market, interpolator)
	customAssetsService := customassets.NewService(userRepo, balanceRepo, interpolator)
	dashboardService := dashboard.NewService(userRepo)
	importer := ecb.NewImporter(rateRepo)

	// 6. Start the scheduler
	sched := scheduler.NewScheduler(ctx, importer, stocksService, customAssetsService, dashboardService)
	if err := sched.Register(cfg.Schedule.NightlyCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()

	if cfg.Schedule.RunOnStart {
		go sched.RunNightlyNow()
	}

	waitForShutdown(sched)
}

// waitForShutdown waits for SIGTERM or SIGINT and stops the scheduler gracefully
func waitForShutdown(sched *scheduler.Scheduler) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("[INFO] received signal: %v. Shutting down gracefully...", sig)

	sched.Stop()
	log.Println("[INFO] worker stopped")
}
