package services

import (
	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// ExpirySweeper polls for expired lots on a fixed interval. Expiry latency
// is bounded by one interval.
type ExpirySweeper struct {
	cron      *cron.Cron
	finalizer domain.ExpiredLotFinalizer
	interval  time.Duration
	log       logger.Logger
}

func NewExpirySweeper(finalizer domain.ExpiredLotFinalizer, interval time.Duration, log logger.Logger) *ExpirySweeper {
	cronLog := cronLogger{log: log}
	return &ExpirySweeper{
		cron: cron.New(
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
		),
		finalizer: finalizer,
		interval:  interval,
		log:       log,
	}
}

func (s *ExpirySweeper) Start(ctx context.Context) error {
	s.log.Info("Starting expiry sweeper", "interval", s.interval)

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *ExpirySweeper) Stop() error {
	s.log.Info("Stopping expiry sweeper")
	<-s.cron.Stop().Done()
	return nil
}

// Sweep runs a single expiry pass.
func (s *ExpirySweeper) Sweep(ctx context.Context) []domain.LotSnapshot {
	if ctx.Err() != nil {
		return nil
	}

	finalized, err := s.finalizer.FinalizeExpired(ctx)
	if err != nil {
		// Lots that were finalized are still reported; the rest are retried next tick
		s.log.Error("Expiry sweep finished with errors", "finalized", len(finalized), "error", err)
	}

	for _, lot := range finalized {
		s.log.Info("Finalized expired lot", "lot_code", lot.Code,
			"winner", lot.CurrentBidder, "amount", lot.CurrentBid)
	}
	return finalized
}

// cronLogger routes cron's own logging into ours.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}
