package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/wealthapp/wealth-backend/internal/adapter/ecb"
	"github.com/wealthapp/wealth-backend/internal/usecase/customassets"
	"github.com/wealthapp/wealth-backend/internal/usecase/dashboard"
	"github.com/wealthapp/wealth-backend/internal/usecase/stocks"
)

// Scheduler runs the nightly maintenance sequence: import exchange rates,
// refresh ticker histories, then rebuild the stored balances of every asset
type Scheduler struct {
	Cron         *cron.Cron
	Importer     *ecb.Importer
	Stocks       *stocks.Service
	CustomAssets *customassets.Service
	Dashboard    *dashboard.Service
	Ctx          context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, importer *ecb.Importer, stocksSvc *stocks.Service, customAssetsSvc *customassets.Service, dashboardSvc *dashboard.Service) *Scheduler {
	return &Scheduler{
		Cron:         cron.New(),
		Importer:     importer,
		Stocks:       stocksSvc,
		CustomAssets: customAssetsSvc,
		Dashboard:    dashboardSvc,
		Ctx:          ctx,
	}
}

// Register registers the nightly maintenance task.
func (s *Scheduler) Register(nightlyCron string) error {
	if _, err := s.Cron.AddFunc(nightlyCron, s.nightlyTask); err != nil {
		return fmt.Errorf("register nightly task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunNightlyNow executes the nightly task immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunNightlyNow() {
	s.nightlyTask()
}

// nightlyTask runs each maintenance step in order; a failing step is logged
// and never aborts the steps after it
func (s *Scheduler) nightlyTask() {
	log.Println("[INFO] running nightly maintenance")

	steps := []struct {
		name string
		run  func(ctx context.Context) error
	}{
		{"import ECB exchange rates", s.Importer.Import},
		{"update ticker histories", s.Stocks.UpdateAllTickers},
		{"recompute stock balances", s.Stocks.RecomputeAllBalances},
		{"recompute custom asset balances", s.CustomAssets.RecomputeAllBalances},
		{"log net worth summaries", s.Dashboard.LogNetWorthSummaries},
	}

	for _, step := range steps {
		if err := step.run(s.Ctx); err != nil {
			log.Printf("[ERROR] %s: %v", step.name, err)
		}
	}

	log.Println("[INFO] nightly maintenance finished")
}
