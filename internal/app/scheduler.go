package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/bobmcallan/momentum/internal/common"
	"github.com/bobmcallan/momentum/internal/models"
)

// WatchJob regenerates the watchlist for a holdings file on each tick.
type WatchJob struct {
	HoldingsPath  string
	MaxCandidates int
	Emit          func(*models.Watchlist)
}

// Scheduler runs watch jobs on a standard five-field cron schedule.
type Scheduler struct {
	cron   *cron.Cron
	logger *common.Logger
	cancel context.CancelFunc
}

// StartWatch registers job on schedule and starts the scheduler. Descriptors
// such as "@hourly" and "@every 15m" are accepted.
func (a *App) StartWatch(schedule string, job WatchJob) error {
	if a.scheduler != nil {
		return fmt.Errorf("watch already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{
		cron:   cron.New(),
		logger: a.Logger,
		cancel: cancel,
	}

	_, err := s.cron.AddFunc(schedule, func() {
		a.runWatch(ctx, job)
	})
	if err != nil {
		cancel()
		return &common.ValidationError{Field: "schedule", Value: schedule, Reason: err.Error()}
	}

	s.cron.Start()
	a.scheduler = s
	a.Logger.Info().Str("schedule", schedule).Str("holdings", job.HoldingsPath).Msg("Watch scheduler: started")
	return nil
}

// Stop cancels an in-flight run and waits for it to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Watch scheduler: stopped")
}

// RunWatchOnce executes job immediately, outside the schedule. It waits for
// any scheduled run in progress.
func (a *App) RunWatchOnce(ctx context.Context, job WatchJob) {
	a.runWatch(ctx, job)
}

// runWatch executes one watch run. Runs are serialized so a scheduled tick
// never overlaps RunWatchOnce and Emit output never interleaves.
func (a *App) runWatch(ctx context.Context, job WatchJob) {
	a.watchMu.Lock()
	defer a.watchMu.Unlock()

	start := time.Now()

	// Holdings are re-read each run so edits apply without a restart
	holdings, err := LoadHoldings(job.HoldingsPath)
	if err != nil {
		a.Logger.Warn().Err(err).Str("holdings", job.HoldingsPath).Msg("Watch: holdings unavailable")
		return
	}

	wl, err := a.WatchlistService.GenerateWatchlist(ctx, holdings, job.MaxCandidates)
	if err != nil {
		a.Logger.Warn().Err(err).Msg("Watch: watchlist generation failed")
		return
	}

	if job.Emit != nil {
		job.Emit(wl)
	}

	a.Logger.Info().
		Int("holdings", len(holdings)).
		Int("candidates", len(wl.Candidates)).
		Str("elapsed", time.Since(start).String()).
		Msg("Watch: complete")
}
