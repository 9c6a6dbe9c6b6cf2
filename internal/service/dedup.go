package service

import (
	"strings"
	"time"

	"github.com/codeshare-labs/codeshare-api/internal/models"
)

// DefaultDuplicateWindow is the interval within which an identical
// resubmission is suppressed rather than stored again.
const DefaultDuplicateWindow = 30 * time.Second

// isDuplicate reports whether the candidate code matches a prior submission
// for the same author and question within the suppression window ending at
// now. Only exact equality after trimming leading/trailing whitespace counts;
// whitespace-only edits inside the code are distinct submissions on purpose.
//
// The check is best-effort: a concurrent ingestion for the same pair may
// still be in flight during its store round-trip and escape suppression. The
// window is generous relative to round-trip latency, so this is accepted.
func isDuplicate(candidate string, prior []models.Submission, now time.Time, window time.Duration) bool {
	trimmed := strings.TrimSpace(candidate)

	for _, submission := range prior {
		if now.Sub(submission.CreatedAt) >= window {
			continue
		}
		if strings.TrimSpace(submission.Code) == trimmed {
			return true
		}
	}

	return false
}
