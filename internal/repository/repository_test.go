package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/codeshare-labs/codeshare-api/internal/models"
)

// setupTestDB opens a per-test in-memory database. The name keeps tests
// isolated while cache=shared lets the pool reuse the same store.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&models.Question{}, &models.Submission{}, &models.HistoryLink{}))

	return db
}

func ptr(s string) *string { return &s }

func seedSubmission(t *testing.T, repo SubmissionRepository, author, code string, questionID *string) models.Submission {
	t.Helper()

	submission := models.Submission{
		AuthorName: author,
		Code:       code,
		Language:   "python",
		QuestionID: questionID,
	}
	require.NoError(t, repo.Create(context.Background(), &submission))

	return submission
}
