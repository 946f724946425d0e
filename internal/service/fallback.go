package service

import (
	"context"
	"time"

	"github.com/tntan04/quan-ly-mua-sam/internal/infra"

	"github.com/rs/zerolog/log"
)

// Data sources reported alongside list reads.
const (
	SourcePrimary  = "primary"
	SourceSnapshot = "snapshot"
)

// SnapshotStore is the secondary store of list views.
type SnapshotStore interface {
	Save(ctx context.Context, key string, v any) error
	Load(ctx context.Context, key string, dest any) (time.Time, error)
}

// ReadGuard runs primary reads under a timeout and the database circuit
// breaker, falling back to the snapshot store when the primary is unhealthy.
type ReadGuard struct {
	cb        *infra.CircuitBreaker
	snapshots SnapshotStore
	timeout   time.Duration
}

func NewReadGuard(cb *infra.CircuitBreaker, snapshots SnapshotStore, timeout time.Duration) *ReadGuard {
	return &ReadGuard{cb: cb, snapshots: snapshots, timeout: timeout}
}

// readThrough returns primary's result, or the snapshot stored under key when
// primary fails. Both failing yields a ConnectivityError.
func readThrough[T any](ctx context.Context, g *ReadGuard, key string, primary func(ctx context.Context) (T, error)) (T, string, error) {
	var zero T
	if g == nil {
		v, err := primary(ctx)
		return v, SourcePrimary, err
	}

	var out T
	call := func(ctx context.Context) error {
		if g.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		v, err := primary(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	}

	var err error
	if g.cb != nil {
		err = g.cb.Execute(ctx, call)
	} else {
		err = call(ctx)
	}
	if err == nil {
		return out, SourcePrimary, nil
	}
	if ctx.Err() != nil {
		return zero, "", ctx.Err()
	}
	if g.snapshots == nil {
		return zero, "", connectivityErr(err)
	}

	var snap T
	updatedAt, serr := g.snapshots.Load(ctx, key, &snap)
	if serr != nil {
		log.Error().Err(err).AnErr("snapshot_err", serr).Str("key", key).
			Msg("fallback: primary and snapshot both unavailable")
		return zero, "", connectivityErr(err)
	}
	log.Warn().Err(err).Str("key", key).Time("snapshot_at", updatedAt).
		Msg("fallback: serving snapshot")
	return snap, SourceSnapshot, nil
}
