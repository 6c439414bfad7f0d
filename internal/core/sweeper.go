package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"reportify-backend-go/internal/db"
	"reportify-backend-go/internal/metrics"
)

// Sweeper periodically re-derives payment effects that are missing because
// the process stopped between the payment write and the effect write.
type Sweeper struct {
	paymentRepo db.PaymentRepository
	reconciler  PaymentReconciler
	lookback    time.Duration
	timeout     time.Duration
	logger      *zap.Logger
	cron        *cron.Cron
}

// NewSweeper creates a Sweeper that inspects payments created within lookback.
func NewSweeper(pr db.PaymentRepository, reconciler PaymentReconciler, lookback time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		paymentRepo: pr,
		reconciler:  reconciler,
		lookback:    lookback,
		timeout:     time.Minute,
		logger:      logger,
	}
}

// SweepResult summarizes one pass.
type SweepResult struct {
	Checked  int
	Repaired int
	Failed   int
}

// Sweep runs one pass over recent payments.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	since := time.Now().UTC().Add(-s.lookback)
	payments, err := s.paymentRepo.ListCreatedSince(ctx, since)
	if err != nil {
		return result, fmt.Errorf("%w: failed to list payments: %v", ErrInternal, err)
	}

	for _, p := range payments {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++
		wrote, err := s.reconciler.ApplyEffect(ctx, p)
		if err != nil {
			if errors.Is(err, db.ErrNotFound) {
				// Boosted issue deleted by its owner since; nothing left to repair.
				s.logger.Info("sweep skipped payment for missing target",
					zap.String("paymentIntentId", p.PaymentIntentID))
				continue
			}
			result.Failed++
			s.logger.Error("sweep failed to apply payment effect",
				zap.String("paymentIntentId", p.PaymentIntentID),
				zap.Error(err))
			continue
		}
		if wrote {
			result.Repaired++
			metrics.RecordSweepRepair(string(p.Type))
			s.logger.Warn("sweep repaired missing payment effect",
				zap.String("paymentIntentId", p.PaymentIntentID),
				zap.String("type", string(p.Type)))
		}
	}
	return result, nil
}

// Start schedules Sweep on the given cron spec.
func (s *Sweeper) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		res, err := s.Sweep(ctx)
		if err != nil {
			s.logger.Error("payment sweep failed", zap.Error(err))
			return
		}
		s.logger.Debug("payment sweep finished",
			zap.Int("checked", res.Checked),
			zap.Int("repaired", res.Repaired),
			zap.Int("failed", res.Failed))
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	s.cron = c
	c.Start()
	s.logger.Info("payment sweeper started", zap.String("schedule", schedule), zap.Duration("lookback", s.lookback))
	return nil
}

// Stop halts scheduling and waits for a running pass, bounded by ctx.
func (s *Sweeper) Stop(ctx context.Context) {
	if s.cron == nil {
		return
	}
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
