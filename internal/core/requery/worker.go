package requery

import (
	"context"
	"errors"
	"time"

	"admitpay/internal/config"
	"admitpay/internal/domain/payment"
	"admitpay/internal/gateway"
	"admitpay/internal/services/reconcile"
	"admitpay/internal/store/repositories"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

// Worker periodically re-verifies stale pending payments against the
// gateway. It drains references whose webhook was lost and whose payer
// never came back to the redirect page. A gateway outage leaves records
// pending; only an explicit gateway answer transitions anything.
type Worker struct {
	payments  repositories.PaymentStore
	engine    *reconcile.Service
	pollEvery time.Duration
	minAge    time.Duration
	batch     int
}

func NewWorker(payments repositories.PaymentStore, engine *reconcile.Service, cfg config.RequeryCfg) *Worker {
	w := &Worker{
		payments:  payments,
		engine:    engine,
		pollEvery: cfg.Interval,
		minAge:    cfg.MinAge,
		batch:     cfg.Batch,
	}
	if w.pollEvery <= 0 {
		w.pollEvery = 2 * time.Minute
	}
	if w.minAge <= 0 {
		w.minAge = 5 * time.Minute
	}
	if w.batch <= 0 {
		w.batch = 25
	}
	return w
}

func (w *Worker) Run(ctx context.Context) {
	log.Info().Dur("interval", w.pollEvery).Msg("requery worker: started")
	t := time.NewTicker(w.pollEvery)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("requery worker: stopping")
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.minAge)
	recs, err := w.payments.ListStalePending(ctx, cutoff, w.batch)
	if err != nil {
		log.Error().Err(err).Msg("requery worker: list stale pending failed")
		return
	}
	for _, rec := range recs {
		if err := w.requeryOne(ctx, rec); err != nil {
			log.Error().Err(err).Str("reference", rec.Reference).Msg("requery worker: verify failed")
			// Record stays pending; next tick retries.
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// requeryOne verifies a single reference, retrying transient gateway
// errors with bounded exponential backoff. Non-transient errors bail out
// immediately.
func (w *Worker) requeryOne(ctx context.Context, rec *payment.Record) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)

	return backoff.Retry(func() error {
		outcome, _, err := w.engine.VerifyAndReconcile(ctx, rec.Reference)
		if err != nil {
			if errors.Is(err, gateway.ErrUnavailable) {
				return err // transient, retry
			}
			return backoff.Permanent(err)
		}
		if outcome == payment.OutcomeMarkedPaid || outcome == payment.OutcomeMarkedFailed {
			log.Info().
				Str("reference", rec.Reference).
				Str("outcome", string(outcome)).
				Msg("requery worker: settled stale payment")
		}
		return nil
	}, policy)
}
