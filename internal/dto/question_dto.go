package dto

import (
	"time"

	"github.com/codeshare-labs/codeshare-api/internal/models"
)

// QuestionCreateRequest is the payload for publishing a new question.
type QuestionCreateRequest struct {
	Title      string `json:"title" validate:"required,max=255"`
	Text       string `json:"text" validate:"required"`
	Language   string `json:"language" validate:"required,max=32"`
	Difficulty string `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	TimeLimit  int    `json:"time_limit" validate:"omitempty,gte=1,lte=480"`
	Active     *bool  `json:"active"`
}

// QuestionResponse is returned to API clients when viewing questions.
type QuestionResponse struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	Language   string    `json:"language"`
	Difficulty string    `json:"difficulty"`
	TimeLimit  int       `json:"time_limit"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewQuestionResponse converts a Question model into a DTO.
func NewQuestionResponse(model models.Question) QuestionResponse {
	return QuestionResponse{
		ID:         model.ID,
		Title:      model.Title,
		Text:       model.Text,
		Language:   model.Language,
		Difficulty: model.Difficulty,
		TimeLimit:  model.TimeLimit,
		Active:     model.Active,
		CreatedAt:  model.CreatedAt,
	}
}

// NewQuestionResponseSlice converts a slice of Question models.
func NewQuestionResponseSlice(questions []models.Question) []QuestionResponse {
	responses := make([]QuestionResponse, 0, len(questions))
	for _, question := range questions {
		responses = append(responses, NewQuestionResponse(question))
	}
	return responses
}
