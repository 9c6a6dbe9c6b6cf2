package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/codeshare-labs/codeshare-api/internal/models"
)

// SubmissionFilter narrows submission queries.
type SubmissionFilter struct {
	QuestionID *string
}

// SubmissionRepository defines data operations for submissions and the
// per-(author, question) history links derived from them.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	ListByAuthor(ctx context.Context, author string, questionID *string) ([]models.Submission, error)
	ListByAuthorAndQuestion(ctx context.Context, author string, questionID *string) ([]models.Submission, error)
	CreateHistoryLink(ctx context.Context, link *models.HistoryLink) error
	ClearAll(ctx context.Context) error
	Count(ctx context.Context) (int64, error)
	CountHistoryLinks(ctx context.Context) (int64, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{})

	if filter.QuestionID != nil {
		query = query.Where("question_id = ?", *filter.QuestionID)
	}

	var submissions []models.Submission
	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

// ListByAuthor returns all of an author's submissions newest first,
// optionally restricted to one question.
func (r *submissionRepository) ListByAuthor(ctx context.Context, author string, questionID *string) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("author_name = ?", author)

	if questionID != nil {
		query = query.Where("question_id = ?", *questionID)
	}

	var submissions []models.Submission
	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

// ListByAuthorAndQuestion returns the author's submissions for exactly one
// question linkage, newest first. A nil questionID selects the author's
// unlinked submissions.
func (r *submissionRepository) ListByAuthorAndQuestion(ctx context.Context, author string, questionID *string) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("author_name = ?", author)

	if questionID != nil {
		query = query.Where("question_id = ?", *questionID)
	} else {
		query = query.Where("question_id IS NULL")
	}

	var submissions []models.Submission
	if err := query.Order("created_at DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) CreateHistoryLink(ctx context.Context, link *models.HistoryLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

// ClearAll wipes submissions and their history links in one transaction.
func (r *submissionRepository) ClearAll(ctx context.Context) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.Submission{}).Error; err != nil {
			return err
		}
		return tx.Where("1 = 1").Delete(&models.HistoryLink{}).Error
	})
}

func (r *submissionRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Submission{}).Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

func (r *submissionRepository) CountHistoryLinks(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.HistoryLink{}).Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}
