package dto

import (
	"time"

	"github.com/codeshare-labs/codeshare-api/internal/models"
)

// SubmitCodeRequest is the payload authors send when sharing code.
type SubmitCodeRequest struct {
	AuthorName string  `json:"author_name" validate:"required,max=50"`
	Code       string  `json:"code"`
	Language   string  `json:"language" validate:"required,max=32"`
	QuestionID *string `json:"question_id" validate:"omitempty,max=36"`
}

// ReviewResponse serializes the verdict attached to a submission.
type ReviewResponse struct {
	IsCorrect   bool     `json:"is_correct"`
	Score       int      `json:"score"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
}

// NewReviewResponse converts a Review model into a DTO.
func NewReviewResponse(review models.Review) ReviewResponse {
	suggestions := review.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	return ReviewResponse{
		IsCorrect:   review.IsCorrect,
		Score:       review.Score,
		Feedback:    review.Feedback,
		Suggestions: suggestions,
	}
}

// SubmissionResponse is returned to API clients and realtime observers.
// Question holds the context frozen at accept time, never a live join.
type SubmissionResponse struct {
	ID         string            `json:"id"`
	AuthorName string            `json:"author_name"`
	Code       string            `json:"code"`
	Language   string            `json:"language"`
	QuestionID *string           `json:"question_id"`
	Question   *QuestionResponse `json:"question_context,omitempty"`
	Review     ReviewResponse    `json:"review"`
	CreatedAt  time.Time         `json:"created_at"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	response := SubmissionResponse{
		ID:         model.ID,
		AuthorName: model.AuthorName,
		Code:       model.Code,
		Language:   model.Language,
		QuestionID: model.QuestionID,
		Review:     NewReviewResponse(model.Review()),
		CreatedAt:  model.CreatedAt,
	}

	if frozen := model.FrozenQuestion(); frozen != nil {
		question := NewQuestionResponse(*frozen)
		response.Question = &question
	}

	return response
}

// NewSubmissionResponseSlice converts a slice of Submission models.
func NewSubmissionResponseSlice(submissions []models.Submission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}

// SubmitCodeResponse is the result of an ingestion attempt. Submission is set
// only on the accepted branch; Review is additionally set when an empty
// submission was turned away before reaching the pipeline. SubmissionCount
// is the attempt number on the accepted and duplicate branches, and zero for
// an empty share, which does not count as an attempt.
type SubmitCodeResponse struct {
	Accepted        bool                `json:"accepted"`
	IsDuplicate     bool                `json:"is_duplicate"`
	SubmissionCount int                 `json:"submission_count"`
	Submission      *SubmissionResponse `json:"submission,omitempty"`
	Review          *ReviewResponse     `json:"review,omitempty"`
}

// HistoryGroupResponse aggregates one author's submissions for one question.
type HistoryGroupResponse struct {
	AuthorName  string               `json:"author_name"`
	QuestionID  string               `json:"question_id"`
	Submissions []SubmissionResponse `json:"submissions"`
}

// NewHistoryGroupResponse converts a HistoryGroup model into a DTO.
func NewHistoryGroupResponse(group models.HistoryGroup) HistoryGroupResponse {
	return HistoryGroupResponse{
		AuthorName:  group.AuthorName,
		QuestionID:  group.QuestionID,
		Submissions: NewSubmissionResponseSlice(group.Submissions),
	}
}

// StatsResponse summarizes stored volumes for the lecturer dashboard.
type StatsResponse struct {
	TotalQuestions    int64 `json:"total_questions"`
	TotalSubmissions  int64 `json:"total_submissions"`
	TotalHistoryLinks int64 `json:"total_history_links"`
}
