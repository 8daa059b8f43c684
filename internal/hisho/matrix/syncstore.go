package matrix

import (
	"context"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

var _ mautrix.SyncStore = (*syncStore)(nil)

// SyncState persists sync positions. *store.Store implements it.
type SyncState interface {
	SaveSyncValue(ctx context.Context, userID, key, value string) error
	LoadSyncValue(ctx context.Context, userID, key string) (string, error)
}

// syncStore keeps the filter id and next_batch token in the application
// database, so a restart resumes where the last sync stopped instead of
// answering old messages again.
type syncStore struct {
	state SyncState
}

func (s *syncStore) SaveFilterID(ctx context.Context, userID id.UserID, filterID string) error {
	return s.state.SaveSyncValue(ctx, userID.String(), "filter_id", filterID)
}

func (s *syncStore) LoadFilterID(ctx context.Context, userID id.UserID) (string, error) {
	return s.state.LoadSyncValue(ctx, userID.String(), "filter_id")
}

func (s *syncStore) SaveNextBatch(ctx context.Context, userID id.UserID, token string) error {
	return s.state.SaveSyncValue(ctx, userID.String(), "next_batch", token)
}

func (s *syncStore) LoadNextBatch(ctx context.Context, userID id.UserID) (string, error) {
	return s.state.LoadSyncValue(ctx, userID.String(), "next_batch")
}
