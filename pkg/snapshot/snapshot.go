package snapshot

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Snapshot represents a point-in-time capture of world state.
type Snapshot struct {
	TickHeight uint64    `json:"tick_height"`
	Timestamp  time.Time `json:"timestamp"`
	Data       []byte    `json:"data"`
	Version    uint32    `json:"version"`
}

const CurrentVersion uint32 = 1

var ErrSnapshotNotFound = eris.New("snapshot not found")

// Storage provides persistence for world snapshots.
type Storage interface {
	// Store saves the snapshot, atomically replacing any existing snapshot.
	Store(ctx context.Context, snapshot *Snapshot) error

	// Load retrieves the current snapshot.
	// Returns ErrSnapshotNotFound if no snapshot exists.
	Load(ctx context.Context) (*Snapshot, error)
}

// StorageType defines the type of snapshot storage to use.
type StorageType uint8

const (
	StorageTypeUndefined StorageType = iota
	StorageTypeNop
	StorageTypeRedis
)

const (
	nopStorageString       = "NOP"
	redisStorageString     = "REDIS"
	undefinedStorageString = "UNDEFINED"
)

func (s StorageType) String() string {
	switch s {
	case StorageTypeUndefined:
		return undefinedStorageString
	case StorageTypeNop:
		return nopStorageString
	case StorageTypeRedis:
		return redisStorageString
	default:
		return undefinedStorageString
	}
}

func (s StorageType) IsValid() bool {
	return s == StorageTypeNop || s == StorageTypeRedis
}

func ParseStorageType(s string) (StorageType, error) {
	switch strings.ToUpper(s) {
	case nopStorageString:
		return StorageTypeNop, nil
	case redisStorageString:
		return StorageTypeRedis, nil
	default:
		return StorageTypeUndefined, eris.Errorf("invalid snapshot storage type: %s", s)
	}
}
