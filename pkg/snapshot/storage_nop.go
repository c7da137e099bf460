package snapshot

import (
	"context"

	"github.com/rotisserie/eris"
)

// NopStorage drops every snapshot. Worlds that don't persist state use it, so Load always reports
// that there is nothing to restore.
type NopStorage struct{}

var _ Storage = (*NopStorage)(nil)

// NewNopStorage creates a storage that keeps nothing.
func NewNopStorage() *NopStorage {
	return &NopStorage{}
}

// Store checks the snapshot like a real storage would and then discards it.
func (n *NopStorage) Store(_ context.Context, snapshot *Snapshot) error {
	if snapshot == nil {
		return eris.New("snapshot cannot be nil")
	}
	return nil
}

// Load always returns ErrSnapshotNotFound.
func (n *NopStorage) Load(_ context.Context) (*Snapshot, error) {
	return nil, eris.Wrap(ErrSnapshotNotFound, "nop storage keeps no snapshots")
}
