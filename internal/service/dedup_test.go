package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeshare-labs/codeshare-api/internal/models"
)

func TestIsDuplicateWithinWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	prior := []models.Submission{
		{Code: "print('hi')", CreatedAt: now.Add(-5 * time.Second)},
	}

	require.True(t, isDuplicate("print('hi')", prior, now, DefaultDuplicateWindow))
}

func TestIsDuplicateOutsideWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	prior := []models.Submission{
		{Code: "print('hi')", CreatedAt: now.Add(-31 * time.Second)},
	}

	require.False(t, isDuplicate("print('hi')", prior, now, DefaultDuplicateWindow))
}

func TestIsDuplicateExactlyAtWindowBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	prior := []models.Submission{
		{Code: "print('hi')", CreatedAt: now.Add(-DefaultDuplicateWindow)},
	}

	// The window is half-open: an age of exactly the window is no longer a
	// duplicate.
	require.False(t, isDuplicate("print('hi')", prior, now, DefaultDuplicateWindow))
}

func TestIsDuplicateIgnoresSurroundingWhitespace(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	prior := []models.Submission{
		{Code: "print('hi')", CreatedAt: now.Add(-time.Second)},
	}

	require.True(t, isDuplicate("  print('hi')\n", prior, now, DefaultDuplicateWindow))
}

func TestIsDuplicateInteriorWhitespaceDistinct(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	prior := []models.Submission{
		{Code: "print( 'hi' )", CreatedAt: now.Add(-time.Second)},
	}

	require.False(t, isDuplicate("print('hi')", prior, now, DefaultDuplicateWindow))
}

func TestIsDuplicateEmptyHistory(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.False(t, isDuplicate("print('hi')", nil, now, DefaultDuplicateWindow))
}
