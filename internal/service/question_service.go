package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/codeshare-labs/codeshare-api/internal/dto"
	"github.com/codeshare-labs/codeshare-api/internal/models"
	"github.com/codeshare-labs/codeshare-api/internal/repository"
)

// ErrQuestionNotFound indicates a question could not be found.
var ErrQuestionNotFound = errors.New("question not found")

// QuestionService manages the question lifecycle and its broadcasts.
type QuestionService interface {
	Create(ctx context.Context, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error)
	List(ctx context.Context) ([]dto.QuestionResponse, error)
	Get(ctx context.Context, id string) (dto.QuestionResponse, error)
	SetActive(ctx context.Context, id string, active bool) (dto.QuestionResponse, error)
}

type questionService struct {
	questions   repository.QuestionRepository
	broadcaster Broadcaster
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewQuestionService constructs a QuestionService instance.
func NewQuestionService(questions repository.QuestionRepository, broadcaster Broadcaster, validate *validator.Validate, logger zerolog.Logger) QuestionService {
	return &questionService{
		questions:   questions,
		broadcaster: broadcaster,
		validator:   validate,
		logger:      logger.With().Str("component", "question_service").Logger(),
	}
}

func (s *questionService) Create(ctx context.Context, payload dto.QuestionCreateRequest) (dto.QuestionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionResponse{}, err
	}

	question := models.Question{
		Title:      payload.Title,
		Text:       payload.Text,
		Language:   payload.Language,
		Difficulty: payload.Difficulty,
		TimeLimit:  payload.TimeLimit,
		Active:     true,
	}
	if question.Difficulty == "" {
		question.Difficulty = models.DifficultyMedium
	}
	if question.TimeLimit == 0 {
		question.TimeLimit = 30
	}
	if payload.Active != nil {
		question.Active = *payload.Active
	}

	var response dto.QuestionResponse
	if err := s.broadcaster.Commit(func() error {
		if err := s.questions.Create(ctx, &question); err != nil {
			return err
		}

		response = dto.NewQuestionResponse(question)
		s.broadcaster.Publish(dto.Event{Type: dto.EventQuestionCreated, Payload: response})
		return nil
	}); err != nil {
		return dto.QuestionResponse{}, err
	}

	s.logger.Info().Str("question_id", question.ID).Str("title", question.Title).Msg("question created")

	return response, nil
}

func (s *questionService) List(ctx context.Context) ([]dto.QuestionResponse, error) {
	questions, err := s.questions.List(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewQuestionResponseSlice(questions), nil
}

func (s *questionService) Get(ctx context.Context, id string) (dto.QuestionResponse, error) {
	question, err := s.questions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionResponse{}, ErrQuestionNotFound
		}
		return dto.QuestionResponse{}, err
	}

	return dto.NewQuestionResponse(question), nil
}

func (s *questionService) SetActive(ctx context.Context, id string, active bool) (dto.QuestionResponse, error) {
	var response dto.QuestionResponse
	if err := s.broadcaster.Commit(func() error {
		found, err := s.questions.SetActive(ctx, id, active)
		if err != nil {
			return err
		}
		if !found {
			return ErrQuestionNotFound
		}

		question, err := s.questions.GetByID(ctx, id)
		if err != nil {
			return err
		}

		response = dto.NewQuestionResponse(question)
		eventType := dto.EventQuestionDeactivated
		if active {
			eventType = dto.EventQuestionActivated
		}
		s.broadcaster.Publish(dto.Event{Type: eventType, Payload: response})
		return nil
	}); err != nil {
		return dto.QuestionResponse{}, err
	}

	return response, nil
}
