package worker

import (
	"context"
	"dinedash-backend/internal/config"
	"time"

	"github.com/rs/zerolog"
)

// StaleSweeper is the part of the payment service the sweeper drives.
type StaleSweeper interface {
	SweepStale(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

// PaymentSweeper periodically fails payments that never got a verification
// callback, so abandoned redirects do not stay pending forever.
type PaymentSweeper struct {
	payments   StaleSweeper
	interval   time.Duration
	pendingTTL time.Duration
	batchSize  int
	log        zerolog.Logger
}

func NewPaymentSweeper(payments StaleSweeper, cfg config.Sweeper, log zerolog.Logger) *PaymentSweeper {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &PaymentSweeper{
		payments:   payments,
		interval:   cfg.Interval,
		pendingTTL: cfg.PendingTTL,
		batchSize:  cfg.BatchSize,
		log:        log.With().Str("component", "payment_sweeper").Logger(),
	}
}

func (w *PaymentSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info().Dur("interval", w.interval).Dur("pending_ttl", w.pendingTTL).Msg("payment sweeper started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("payment sweeper stopped")
			return
		case <-ticker.C:
			if _, err := w.process(ctx); err != nil {
				w.log.Error().Err(err).Msg("sweep stale payments")
			}
		}
	}
}

// process drains stale payments batch by batch until a short batch comes back.
func (w *PaymentSweeper) process(ctx context.Context) (int, error) {
	total := 0
	for {
		swept, err := w.payments.SweepStale(ctx, w.pendingTTL, w.batchSize)
		total += swept
		if err != nil {
			return total, err
		}
		if swept < w.batchSize || ctx.Err() != nil {
			break
		}
	}

	if total > 0 {
		w.log.Info().Int("count", total).Msg("expired stale payments")
	}
	return total, nil
}
