package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// Review is the verdict produced for a submission. It is always built as one
// unit and embedded into the submission it was computed for.
type Review struct {
	IsCorrect   bool     `json:"is_correct"`
	Score       int      `json:"score"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
}

// Submission is one accepted piece of shared code. Immutable after creation.
// QuestionContext holds the question frozen as of accept time, so later edits
// to the question never rewrite what the author was actually answering.
type Submission struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	AuthorName      string         `gorm:"size:64;not null;index" json:"author_name"`
	Code            string         `gorm:"type:text;not null" json:"code"`
	Language        string         `gorm:"size:32;not null" json:"language"`
	QuestionID      *string        `gorm:"size:36;index" json:"question_id"`
	QuestionContext datatypes.JSON `json:"question_context"`
	IsCorrect       bool           `gorm:"not null" json:"is_correct"`
	Score           int            `gorm:"not null" json:"score"`
	Feedback        string         `gorm:"type:text" json:"feedback"`
	Suggestions     datatypes.JSON `json:"suggestions"`
	CreatedAt       time.Time      `gorm:"index" json:"created_at"`
}

// Review assembles the embedded review columns back into a Review value.
func (s Submission) Review() Review {
	review := Review{
		IsCorrect: s.IsCorrect,
		Score:     s.Score,
		Feedback:  s.Feedback,
	}
	if len(s.Suggestions) > 0 {
		_ = json.Unmarshal(s.Suggestions, &review.Suggestions)
	}
	return review
}

// SetReview embeds a review into the submission's columns.
func (s *Submission) SetReview(review Review) error {
	suggestions, err := json.Marshal(review.Suggestions)
	if err != nil {
		return err
	}
	s.IsCorrect = review.IsCorrect
	s.Score = review.Score
	s.Feedback = review.Feedback
	s.Suggestions = datatypes.JSON(suggestions)
	return nil
}

// FreezeQuestion stores the question state at accept time.
func (s *Submission) FreezeQuestion(question Question) error {
	frozen, err := json.Marshal(question)
	if err != nil {
		return err
	}
	s.QuestionContext = datatypes.JSON(frozen)
	return nil
}

// FrozenQuestion decodes the question snapshot captured at accept time, if
// the submission was question-linked.
func (s Submission) FrozenQuestion() *Question {
	if len(s.QuestionContext) == 0 {
		return nil
	}
	var question Question
	if err := json.Unmarshal(s.QuestionContext, &question); err != nil {
		return nil
	}
	return &question
}

// HistoryLink records that an author answered a question with a submission.
// Written only for question-linked submissions, after the submission write.
type HistoryLink struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AuthorName   string    `gorm:"size:64;not null;index:idx_history_author_question" json:"author_name"`
	QuestionID   string    `gorm:"size:36;not null;index:idx_history_author_question" json:"question_id"`
	SubmissionID string    `gorm:"size:36;not null" json:"submission_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// HistoryGroup is the derived aggregation of one author's submissions for one
// question, newest first. Unlinked submissions group under an empty question
// identity so the groups always partition the author's full history.
type HistoryGroup struct {
	AuthorName  string
	QuestionID  string
	Submissions []Submission
}
