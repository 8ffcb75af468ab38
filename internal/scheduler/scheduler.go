// Package scheduler runs latest-mode harvests on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"TWStockHarvester/internal/harvester"
	"TWStockHarvester/internal/notifier"
	"TWStockHarvester/internal/reconcile"
)

// Runner is the part of harvester.Harvester the scheduler drives.
type Runner interface {
	HarvestPrices(ctx context.Context, req reconcile.DateRequest, tickers ...string) (*harvester.Summary, error)
	HarvestStatements(ctx context.Context, req reconcile.PeriodRequest, tickers ...string) (*harvester.Summary, error)
}

// Notifier delivers run reports. It may be nil.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages the cron tasks.
type Scheduler struct {
	Cron     *cron.Cron
	Runner   Runner
	Notifier Notifier
	Ctx      context.Context
	logger   arbor.ILogger

	pricesJob     cron.Job
	statementsJob cron.Job
	startup       sync.WaitGroup
}

// NewScheduler creates a Scheduler. Runs of the same job never overlap,
// whether fired by cron or by RunOnStart.
func NewScheduler(ctx context.Context, runner Runner, n Notifier, logger arbor.ILogger) *Scheduler {
	s := &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Runner:   runner,
		Notifier: n,
		Ctx:      ctx,
		logger:   logger,
	}
	chain := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger))
	s.pricesJob = chain.Then(cron.FuncJob(s.RunPricesNow))
	s.statementsJob = chain.Then(cron.FuncJob(s.RunStatementsNow))
	return s
}

// RegisterAll registers the price and statement tasks. An empty spec
// leaves that task unscheduled.
func (s *Scheduler) RegisterAll(pricesCron, statementsCron string) error {
	if pricesCron != "" {
		if _, err := s.Cron.AddJob(pricesCron, s.pricesJob); err != nil {
			return fmt.Errorf("register prices task: %w", err)
		}
	}
	if statementsCron != "" {
		if _, err := s.Cron.AddJob(statementsCron, s.statementsJob); err != nil {
			return fmt.Errorf("register statements task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	s.logger.Info().Int("jobs", len(s.Cron.Entries())).Msg("Scheduler started")
}

// RunOnStart runs the prices task and then the statements task once in the
// background. Stop waits for it.
func (s *Scheduler) RunOnStart() {
	s.startup.Add(1)
	go func() {
		defer s.startup.Done()
		s.pricesJob.Run()
		s.statementsJob.Run()
	}()
}

// Stop stops the cron scheduler and waits for running jobs, including the
// start-up pass.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.startup.Wait()
	s.logger.Info().Msg("Scheduler stopped")
}

// RunPricesNow harvests new bars for every ticker.
func (s *Scheduler) RunPricesNow() {
	s.logger.Info().Msg("Running prices task")
	summary, err := s.Runner.HarvestPrices(s.Ctx, reconcile.DateRequest{Latest: true})
	s.report(harvester.KindPrices, summary, err)
}

// RunStatementsNow harvests newly announced statements for every ticker.
func (s *Scheduler) RunStatementsNow() {
	s.logger.Info().Msg("Running statements task")
	summary, err := s.Runner.HarvestStatements(s.Ctx, reconcile.PeriodRequest{Latest: true})
	s.report(harvester.KindStatements, summary, err)
}

func (s *Scheduler) report(kind string, summary *harvester.Summary, err error) {
	now := time.Now()
	if err != nil {
		s.logger.Error().Err(err).Str("kind", kind).Msg("Scheduled harvest failed")
		s.trySend(notifier.FormatAbort(kind, err, now))
		return
	}
	s.logger.Info().Str("summary", summary.String()).Msg("Scheduled harvest done")
	s.trySend(notifier.FormatSummary(summary, now))
}

func (s *Scheduler) trySend(msg string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, msg, 2); err != nil {
		s.logger.Error().Err(err).Msg("Notification failed")
	}
}
