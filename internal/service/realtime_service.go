package service

import (
	"context"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/codeshare-labs/codeshare-api/internal/dto"
	"github.com/codeshare-labs/codeshare-api/internal/repository"
)

// RealtimeConnectionOptions wraps metadata extracted during the HTTP upgrade.
// An empty AuthorName marks a pure observer that is never presence-tracked.
type RealtimeConnectionOptions struct {
	ConnectionID string
	AuthorName   string
	Context      context.Context
}

// RealtimeService attaches websocket clients to the broadcast fan-out and
// keeps the presence registry in step with connection lifecycles.
type RealtimeService interface {
	Broadcaster
	ServeConnection(conn *websocket.Conn, opts RealtimeConnectionOptions)
	Presence() []dto.PresenceResponse
}

type realtimeService struct {
	hub         *Hub
	presence    *PresenceTracker
	submissions repository.SubmissionRepository
	questions   repository.QuestionRepository
	logger      zerolog.Logger
}

// NewRealtimeService builds the realtime fan-out service. The repositories
// feed the full-state snapshot pushed to each newly connected client.
func NewRealtimeService(hub *Hub, presence *PresenceTracker, submissions repository.SubmissionRepository, questions repository.QuestionRepository, logger zerolog.Logger) RealtimeService {
	return &realtimeService{
		hub:         hub,
		presence:    presence,
		submissions: submissions,
		questions:   questions,
		logger:      logger.With().Str("component", "realtime_service").Logger(),
	}
}

// Publish forwards a state-change event to every connected client.
func (s *realtimeService) Publish(event dto.Event) {
	s.hub.Publish(event)
}

// Commit forwards to the hub so a store write and the event it triggers land
// as one step relative to connect snapshots.
func (s *realtimeService) Commit(fn func() error) error {
	return s.hub.Commit(fn)
}

// Presence exposes the current presence set for snapshot assembly.
func (s *realtimeService) Presence() []dto.PresenceResponse {
	return dto.NewPresenceResponseSlice(s.presence.Snapshot())
}

func (s *realtimeService) ServeConnection(conn *websocket.Conn, opts RealtimeConnectionOptions) {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	author := sanitizeAuthorName(opts.AuthorName)

	// Author registration is published before the client attaches, so the
	// new client sees itself in the snapshot rather than as a live event.
	if author != "" {
		_ = s.hub.Commit(func() error {
			records := s.presence.Register(opts.ConnectionID, author)
			s.hub.Publish(dto.Event{
				Type:    dto.EventPresenceChanged,
				Payload: dto.PresenceChangedPayload{Presence: dto.NewPresenceResponseSlice(records)},
			})
			return nil
		})
	}

	snapshot := func() (dto.Event, error) {
		return s.buildSnapshot(ctx)
	}

	onMessage := func() {
		_ = s.hub.Commit(func() error {
			records, changed := s.presence.Touch(opts.ConnectionID)
			if !changed {
				return nil
			}
			s.hub.Publish(dto.Event{
				Type:    dto.EventPresenceChanged,
				Payload: dto.PresenceChangedPayload{Presence: dto.NewPresenceResponseSlice(records)},
			})
			return nil
		})
	}

	onClose := func() {
		_ = s.hub.Commit(func() error {
			records, changed := s.presence.Remove(opts.ConnectionID)
			if !changed {
				return nil
			}
			s.hub.Publish(dto.Event{
				Type:    dto.EventPresenceChanged,
				Payload: dto.PresenceChangedPayload{Presence: dto.NewPresenceResponseSlice(records)},
			})
			return nil
		})
	}

	s.hub.ServeConnection(conn, snapshot, onMessage, onClose)
}

func (s *realtimeService) buildSnapshot(ctx context.Context) (dto.Event, error) {
	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{})
	if err != nil {
		return dto.Event{}, err
	}

	questions, err := s.questions.List(ctx)
	if err != nil {
		return dto.Event{}, err
	}

	payload := dto.SnapshotPayload{
		Submissions: dto.NewSubmissionResponseSlice(submissions),
		Questions:   dto.NewQuestionResponseSlice(questions),
		Presence:    dto.NewPresenceResponseSlice(s.presence.Snapshot()),
	}

	return dto.Event{Type: dto.EventSnapshot, Payload: payload}, nil
}
