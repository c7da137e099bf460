package snapshot

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

const (
	defaultKeyPrefix = "WORLD:SNAPSHOT"
	currentSuffix    = ":CURRENT"
	backupSuffix     = ":BACKUP"
	maxStoreAttempts = 16
)

// RedisStorage keeps the latest snapshot under a single key and the previous one under a backup
// key. Both keys are written in one MULTI/EXEC transaction that aborts if the current key changed
// since it was read.
type RedisStorage struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ Storage = (*RedisStorage)(nil)

// RedisStorageOptions configures a RedisStorage.
type RedisStorageOptions struct {
	Client    redis.UniversalClient
	KeyPrefix string // Defaults to WORLD:SNAPSHOT
}

// Validate checks that a client is provided.
func (opts RedisStorageOptions) Validate() error {
	if opts.Client == nil {
		return eris.New("redis client cannot be nil")
	}
	return nil
}

// NewRedisStorage creates a redis backed snapshot storage.
func NewRedisStorage(opts RedisStorageOptions) (*RedisStorage, error) {
	if err := opts.Validate(); err != nil {
		return nil, eris.Wrap(err, "invalid options passed")
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStorage{client: opts.Client, keyPrefix: prefix}, nil
}

func (r *RedisStorage) currentKey() string {
	return r.keyPrefix + currentSuffix
}

func (r *RedisStorage) backupKey() string {
	return r.keyPrefix + backupSuffix
}

// Store writes the snapshot under the current key and moves the previous one to the backup key.
// The read of the previous snapshot is guarded with WATCH, so a concurrent Store makes this one
// retry instead of writing a stale backup.
func (r *RedisStorage) Store(ctx context.Context, snapshot *Snapshot) error {
	if snapshot == nil {
		return eris.New("snapshot cannot be nil")
	}
	bz, err := json.Marshal(snapshot)
	if err != nil {
		return eris.Wrap(err, "failed to marshal snapshot")
	}

	swap := func(tx *redis.Tx) error {
		previous, err := tx.Get(ctx, r.currentKey()).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return eris.Wrap(err, "failed to read current snapshot")
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if previous != nil {
				pipe.Set(ctx, r.backupKey(), previous, 0)
			}
			pipe.Set(ctx, r.currentKey(), bz, 0)
			return nil
		})
		return err
	}

	for range maxStoreAttempts {
		err = r.client.Watch(ctx, swap, r.currentKey())
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil {
		return eris.Wrap(err, "failed to store snapshot")
	}
	return nil
}

func (r *RedisStorage) Load(ctx context.Context) (*Snapshot, error) {
	bz, err := r.client.Get(ctx, r.currentKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, eris.Wrapf(ErrSnapshotNotFound, "key %s", r.currentKey())
		}
		return nil, eris.Wrap(err, "failed to load snapshot")
	}

	var snapshot Snapshot
	if err := json.Unmarshal(bz, &snapshot); err != nil {
		return nil, eris.Wrap(err, "failed to unmarshal snapshot")
	}
	return &snapshot, nil
}

// LoadBackup retrieves the snapshot that was current before the last Store.
func (r *RedisStorage) LoadBackup(ctx context.Context) (*Snapshot, error) {
	bz, err := r.client.Get(ctx, r.backupKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, eris.Wrapf(ErrSnapshotNotFound, "key %s", r.backupKey())
		}
		return nil, eris.Wrap(err, "failed to load backup snapshot")
	}

	var snapshot Snapshot
	if err := json.Unmarshal(bz, &snapshot); err != nil {
		return nil, eris.Wrap(err, "failed to unmarshal backup snapshot")
	}
	return &snapshot, nil
}
