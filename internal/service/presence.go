package service

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/codeshare-labs/codeshare-api/internal/models"
)

// PresenceTracker owns the in-memory registry of connected authors. The map
// is never shared; every access goes through Register, Touch, Remove or
// Snapshot, so operations are atomic per connection.
type PresenceTracker struct {
	mu      sync.Mutex
	records map[string]models.PresenceRecord
	logger  zerolog.Logger
	now     func() time.Time
}

// NewPresenceTracker builds an empty tracker.
func NewPresenceTracker(logger zerolog.Logger) *PresenceTracker {
	return &PresenceTracker{
		records: make(map[string]models.PresenceRecord),
		logger:  logger.With().Str("component", "presence_tracker").Logger(),
		now:     time.Now,
	}
}

// Register inserts or overwrites the record for a connection, resetting both
// timestamps to now. It returns the resulting presence snapshot.
func (t *PresenceTracker) Register(connectionID, authorName string) []models.PresenceRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.records[connectionID] = models.PresenceRecord{
		ConnectionID: connectionID,
		AuthorName:   authorName,
		ConnectedAt:  now,
		LastActiveAt: now,
	}

	t.logger.Debug().Str("connection_id", connectionID).Str("author", authorName).Msg("author registered")

	return t.snapshotLocked()
}

// Touch refreshes the activity timestamp for a connection. A touch for an
// unregistered connection is tolerated silently; the boolean reports whether
// anything changed.
func (t *PresenceTracker) Touch(connectionID string) ([]models.PresenceRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	record, ok := t.records[connectionID]
	if !ok {
		return nil, false
	}

	record.LastActiveAt = t.now()
	t.records[connectionID] = record

	return t.snapshotLocked(), true
}

// Remove deletes the record for a connection. Removing an unregistered
// connection is a silent no-op.
func (t *PresenceTracker) Remove(connectionID string) ([]models.PresenceRecord, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.records[connectionID]; !ok {
		return nil, false
	}

	delete(t.records, connectionID)
	t.logger.Debug().Str("connection_id", connectionID).Msg("author removed")

	return t.snapshotLocked(), true
}

// Snapshot returns the current presence set, ordered by connect time.
func (t *PresenceTracker) Snapshot() []models.PresenceRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.snapshotLocked()
}

func (t *PresenceTracker) snapshotLocked() []models.PresenceRecord {
	records := make([]models.PresenceRecord, 0, len(t.records))
	for _, record := range t.records {
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].ConnectedAt.Equal(records[j].ConnectedAt) {
			return records[i].ConnectionID < records[j].ConnectionID
		}
		return records[i].ConnectedAt.Before(records[j].ConnectedAt)
	})

	return records
}
