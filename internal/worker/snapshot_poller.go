package worker

// Copies the fallback list views into the snapshot store on a fixed interval
// so reads survive a primary store outage.

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultSnapshotInterval = 30 * time.Second

// SnapshotRefresher is satisfied by service.SnapshotService.
type SnapshotRefresher interface {
	RefreshSnapshots(ctx context.Context) error
}

// StartSnapshotPoller refreshes once immediately, then every interval until
// ctx is cancelled.
func StartSnapshotPoller(ctx context.Context, snapshots SnapshotRefresher, interval time.Duration) {
	if interval <= 0 {
		interval = defaultSnapshotInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("snapshot_poller: started")
		refreshSnapshots(ctx, snapshots)

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("snapshot_poller: shutting down")
				return
			case <-ticker.C:
				refreshSnapshots(ctx, snapshots)
			}
		}
	}()
}

func refreshSnapshots(ctx context.Context, snapshots SnapshotRefresher) {
	start := time.Now()
	if err := snapshots.RefreshSnapshots(ctx); err != nil {
		log.Warn().Err(err).Msg("snapshot_poller: refresh incomplete")
		return
	}
	log.Debug().Dur("took", time.Since(start)).Msg("snapshot_poller: snapshots refreshed")
}
