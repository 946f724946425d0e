package infra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Snapshot keys.
const (
	SnapshotUnits    = "units"
	SnapshotMethods  = "methods"
	SnapshotDossiers = "dossiers"
)

const snapshotPrefix = "snapshot:"

// ErrNoSnapshot is returned when a key has never been written.
var ErrNoSnapshot = errors.New("snapshot not found")

// SnapshotStore is the secondary replicated store: JSON copies of list views
// kept in a Redis hash per key ("data" + "updated_at").
type SnapshotStore struct {
	rdb *redis.Client
}

func NewSnapshotStore(rdb *redis.Client) *SnapshotStore {
	return &SnapshotStore{rdb: rdb}
}

// Save replaces the snapshot stored under key.
func (s *SnapshotStore) Save(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("snapshot %s: marshal: %w", key, err)
	}
	return s.rdb.HSet(ctx, snapshotPrefix+key,
		"data", data,
		"updated_at", time.Now().UTC().Format(time.RFC3339Nano),
	).Err()
}

// Load decodes the snapshot stored under key into dest and returns when it
// was written.
func (s *SnapshotStore) Load(ctx context.Context, key string, dest any) (time.Time, error) {
	vals, err := s.rdb.HMGet(ctx, snapshotPrefix+key, "data", "updated_at").Result()
	if err != nil {
		return time.Time{}, err
	}
	raw, ok := vals[0].(string)
	if !ok {
		return time.Time{}, ErrNoSnapshot
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return time.Time{}, fmt.Errorf("snapshot %s: unmarshal: %w", key, err)
	}
	var at time.Time
	if ts, ok := vals[1].(string); ok {
		at, _ = time.Parse(time.RFC3339Nano, ts)
	}
	return at, nil
}
