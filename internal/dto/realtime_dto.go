package dto

import (
	"time"

	"github.com/codeshare-labs/codeshare-api/internal/models"
)

// Realtime event types pushed to connected observers.
const (
	EventSnapshot              = "snapshot"
	EventSubmissionAccepted    = "submission-accepted"
	EventQuestionCreated       = "question-created"
	EventQuestionActivated     = "question-activated"
	EventQuestionDeactivated   = "question-deactivated"
	EventAllSubmissionsCleared = "all-submissions-cleared"
	EventPresenceChanged       = "presence-changed"
)

// Event is the tagged payload delivered over the realtime channel.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// PresenceResponse serializes one connected author.
type PresenceResponse struct {
	ConnectionID string    `json:"connection_id"`
	AuthorName   string    `json:"author_name"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastActiveAt time.Time `json:"last_active_at"`
}

// NewPresenceResponseSlice converts presence records into DTOs.
func NewPresenceResponseSlice(records []models.PresenceRecord) []PresenceResponse {
	responses := make([]PresenceResponse, 0, len(records))
	for _, record := range records {
		responses = append(responses, PresenceResponse{
			ConnectionID: record.ConnectionID,
			AuthorName:   record.AuthorName,
			ConnectedAt:  record.ConnectedAt,
			LastActiveAt: record.LastActiveAt,
		})
	}
	return responses
}

// PresenceChangedPayload carries the full presence set on every change.
type PresenceChangedPayload struct {
	Presence []PresenceResponse `json:"presence"`
}

// SnapshotPayload is the full current state sent to a newly connected client
// before any incremental event.
type SnapshotPayload struct {
	Submissions []SubmissionResponse `json:"submissions"`
	Questions   []QuestionResponse   `json:"questions"`
	Presence    []PresenceResponse   `json:"presence"`
}
