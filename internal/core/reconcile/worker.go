// Package reconcile drives attempts that are still pending at the connector
// toward a final status by re-running the sync flow on a schedule.
package reconcile

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"payhub/internal/config"
	"payhub/internal/connector"
	"payhub/internal/domain/payment"
	"payhub/internal/metrics"
	paymentsvc "payhub/internal/services/payment"
	"payhub/internal/store/repositories"
)

// Syncer re-queries the connector for one attempt.
type Syncer interface {
	SyncAttempt(ctx context.Context, attempt *payment.Attempt) (*paymentsvc.Result, error)
}

// Sync results, also used as metric labels.
const (
	ResultSettled   = "settled"
	ResultPending   = "pending"
	ResultExhausted = "exhausted"
	ResultDeferred  = "deferred"
	ResultError     = "error"
)

type Worker struct {
	attempts    repositories.AttemptRepository
	syncer      Syncer
	pollEvery   time.Duration
	batch       int
	concurrency int
	syncDelay   time.Duration
	maxSyncs    int
	now         func() time.Time
}

func NewWorker(attempts repositories.AttemptRepository, syncer Syncer, cfg config.ReconcileCfg) *Worker {
	w := &Worker{
		attempts:    attempts,
		syncer:      syncer,
		pollEvery:   cfg.PollEvery,
		batch:       cfg.Batch,
		concurrency: cfg.Concurrency,
		syncDelay:   cfg.SyncDelay,
		maxSyncs:    cfg.MaxSyncs,
		now:         time.Now,
	}
	if w.pollEvery <= 0 {
		w.pollEvery = 5 * time.Second
	}
	if w.batch <= 0 {
		w.batch = 50
	}
	if w.concurrency <= 0 {
		w.concurrency = 8
	}
	if w.syncDelay <= 0 {
		w.syncDelay = paymentsvc.DefaultSyncDelay
	}
	if w.maxSyncs <= 0 {
		w.maxSyncs = 10
	}
	return w
}

func (w *Worker) Run(ctx context.Context) {
	log.Info().
		Dur("poll_every", w.pollEvery).
		Int("batch", w.batch).
		Int("concurrency", w.concurrency).
		Msg("reconcile worker: started")
	t := time.NewTicker(w.pollEvery)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reconcile worker: stopping")
			return
		case <-t.C:
			if _, err := w.Tick(ctx); err != nil {
				log.Error().Err(err).Msg("reconcile worker: tick failed")
			}
		}
	}
}

// Tick syncs one batch of due attempts and returns how many it picked up.
func (w *Worker) Tick(ctx context.Context) (int, error) {
	due, err := w.attempts.FindDueForSync(ctx, w.now(), w.batch)
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}
	log.Debug().Int("count", len(due)).Msg("reconcile worker: syncing batch")

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, a := range due {
		g.Go(func() error {
			result := w.syncOne(gctx, a)
			metrics.ReconcileRuns.WithLabelValues(a.Connector.String(), result).Inc()
			return nil
		})
	}
	return len(due), g.Wait()
}

func (w *Worker) syncOne(ctx context.Context, a *payment.Attempt) string {
	res, err := w.syncer.SyncAttempt(ctx, a)
	switch {
	case errors.Is(err, connector.ErrNotImplemented), errors.Is(err, connector.ErrFlowNotSupported):
		// the connector cannot be polled; its webhooks will settle the attempt
		a.NextSyncAt = nil
		w.save(ctx, a)
		return ResultDeferred
	case err != nil:
		log.Warn().Err(err).
			Str("attempt_id", a.ID).
			Str("connector", a.Connector.String()).
			Msg("reconcile worker: sync failed")
		return w.reschedule(ctx, a, ResultError)
	}

	current := res.Attempt
	if !current.NeedsSync() {
		return ResultSettled
	}
	return w.reschedule(ctx, current, ResultPending)
}

// reschedule books the next sync, or gives up after maxSyncs tries.
func (w *Worker) reschedule(ctx context.Context, a *payment.Attempt, result string) string {
	if a.SyncCount+1 >= w.maxSyncs {
		a.NextSyncAt = nil
		w.save(ctx, a)
		log.Warn().
			Str("attempt_id", a.ID).
			Str("connector", a.Connector.String()).
			Int("syncs", a.SyncCount+1).
			Msg("reconcile worker: giving up on attempt")
		return ResultExhausted
	}
	a.ScheduleSync(w.now().Add(w.NextDelay(a.SyncCount)))
	w.save(ctx, a)
	return result
}

// NextDelay is the wait before sync number n+1. It doubles from syncDelay
// and is capped at one hour.
func (w *Worker) NextDelay(n int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.syncDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Hour
	b.MaxElapsedTime = 0
	b.Reset()

	d := b.NextBackOff()
	for i := 0; i < n; i++ {
		d = b.NextBackOff()
	}
	return d
}

func (w *Worker) save(ctx context.Context, a *payment.Attempt) {
	if err := w.attempts.Save(ctx, a); err != nil {
		log.Error().Err(err).Str("attempt_id", a.ID).Msg("reconcile worker: save failed")
	}
}
