package worker

// Periodically repairs COMPLETED dossiers whose member requests were not all
// moved to PURCHASED. Uses the database circuit breaker so a downed primary
// store is not hammered.

import (
	"context"
	"time"

	"github.com/tntan04/quan-ly-mua-sam/internal/infra"

	"github.com/rs/zerolog/log"
)

const defaultReconcileInterval = time.Minute

// Reconciler is the slice of the dossier service the cron needs.
type Reconciler interface {
	ReconcileCompleted(ctx context.Context) (int, error)
}

// ReconcileCronConfig holds all dependencies for the reconcile goroutine.
type ReconcileCronConfig struct {
	Dossiers Reconciler
	CB       *infra.CircuitBreaker
	Interval time.Duration
}

// StartReconcileCron launches a goroutine that ticks every Interval until ctx
// is cancelled.
func StartReconcileCron(ctx context.Context, cfg ReconcileCronConfig) {
	interval := cfg.Interval
	if interval <= 0 {
		interval = defaultReconcileInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("reconcile_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("reconcile_cron: shutting down")
				return
			case <-ticker.C:
				reconcileOnce(ctx, cfg)
			}
		}
	}()
}

// reconcileOnce returns how many dossiers were repaired.
func reconcileOnce(ctx context.Context, cfg ReconcileCronConfig) int {
	if cfg.CB != nil && cfg.CB.State() == infra.CBOpen {
		log.Debug().Msg("reconcile_cron: circuit breaker is open, skipping tick")
		return 0
	}

	var repaired int
	run := func(ctx context.Context) error {
		n, err := cfg.Dossiers.ReconcileCompleted(ctx)
		repaired = n
		return err
	}
	var err error
	if cfg.CB != nil {
		err = cfg.CB.Execute(ctx, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		log.Error().Err(err).Int("repaired", repaired).Msg("reconcile_cron: reconcile failed")
	}
	if repaired > 0 {
		log.Info().Int("repaired", repaired).Msg("reconcile_cron: completed dossiers repaired")
	}
	return repaired
}
