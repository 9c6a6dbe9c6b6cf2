package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/codeshare-labs/codeshare-api/internal/dto"
	"github.com/codeshare-labs/codeshare-api/internal/models"
	"github.com/codeshare-labs/codeshare-api/internal/repository"
)

type stubSubmissionRepo struct {
	prior     []models.Submission
	byAuthor  []models.Submission
	listed    []models.Submission
	created   []models.Submission
	links     []models.HistoryLink
	cleared   bool
	listCalls int
}

func (r *stubSubmissionRepo) Create(_ context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = fmt.Sprintf("sub-%d", len(r.created)+1)
	}
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now()
	}
	r.created = append(r.created, *submission)
	return nil
}

func (r *stubSubmissionRepo) List(_ context.Context, _ repository.SubmissionFilter) ([]models.Submission, error) {
	r.listCalls++
	return r.listed, nil
}

func (r *stubSubmissionRepo) ListByAuthor(_ context.Context, _ string, _ *string) ([]models.Submission, error) {
	return r.byAuthor, nil
}

func (r *stubSubmissionRepo) ListByAuthorAndQuestion(_ context.Context, _ string, _ *string) ([]models.Submission, error) {
	return r.prior, nil
}

func (r *stubSubmissionRepo) CreateHistoryLink(_ context.Context, link *models.HistoryLink) error {
	r.links = append(r.links, *link)
	return nil
}

func (r *stubSubmissionRepo) ClearAll(_ context.Context) error {
	r.cleared = true
	return nil
}

func (r *stubSubmissionRepo) Count(_ context.Context) (int64, error) {
	return int64(len(r.created)), nil
}

func (r *stubSubmissionRepo) CountHistoryLinks(_ context.Context) (int64, error) {
	return int64(len(r.links)), nil
}

type stubQuestionRepo struct {
	question models.Question
}

func (r *stubQuestionRepo) Create(_ context.Context, question *models.Question) error {
	if question.ID == "" {
		question.ID = "q-1"
	}
	r.question = *question
	return nil
}

func (r *stubQuestionRepo) GetByID(_ context.Context, id string) (models.Question, error) {
	if r.question.ID != "" && r.question.ID == id {
		return r.question, nil
	}
	return models.Question{}, gorm.ErrRecordNotFound
}

func (r *stubQuestionRepo) List(_ context.Context) ([]models.Question, error) {
	if r.question.ID == "" {
		return nil, nil
	}
	return []models.Question{r.question}, nil
}

func (r *stubQuestionRepo) SetActive(_ context.Context, id string, active bool) (bool, error) {
	if r.question.ID != id {
		return false, nil
	}
	r.question.Active = active
	return true, nil
}

func (r *stubQuestionRepo) Count(_ context.Context) (int64, error) {
	if r.question.ID == "" {
		return 0, nil
	}
	return 1, nil
}

type recordingBroadcaster struct {
	events    []dto.Event
	inCommit  bool
	committed []bool
}

func (b *recordingBroadcaster) Publish(event dto.Event) {
	b.events = append(b.events, event)
	b.committed = append(b.committed, b.inCommit)
}

func (b *recordingBroadcaster) Commit(fn func() error) error {
	b.inCommit = true
	defer func() { b.inCommit = false }()
	return fn()
}

func newTestSubmissionService(subs *stubSubmissionRepo, questions *stubQuestionRepo, broadcaster *recordingBroadcaster, cache *redis.Client) SubmissionService {
	return NewSubmissionService(
		subs,
		questions,
		broadcaster,
		cache,
		SubmissionConfig{},
		validator.New(validator.WithRequiredStructEnabled()),
		zerolog.New(io.Discard),
	)
}

func strPtr(s string) *string { return &s }

func TestSubmitAcceptedStoresLinksAndBroadcasts(t *testing.T) {
	subs := &stubSubmissionRepo{}
	questions := &stubQuestionRepo{question: models.Question{
		ID:       "q-1",
		Title:    "Loops",
		Text:     "Write a loop that prints numbers",
		Language: "python",
		Active:   true,
	}}
	broadcaster := &recordingBroadcaster{}
	svc := newTestSubmissionService(subs, questions, broadcaster, nil)

	response, err := svc.Submit(context.Background(), dto.SubmitCodeRequest{
		AuthorName: "Ana",
		Code:       "x=1",
		Language:   "python",
		QuestionID: strPtr("q-1"),
	})
	require.NoError(t, err)

	require.True(t, response.Accepted)
	require.False(t, response.IsDuplicate)
	require.Equal(t, 1, response.SubmissionCount)
	require.NotNil(t, response.Submission)
	require.True(t, response.Submission.Review.IsCorrect)
	require.Equal(t, 100, response.Submission.Review.Score)

	require.Len(t, subs.created, 1)
	require.Equal(t, "q-1", *subs.created[0].QuestionID)

	require.Len(t, subs.links, 1)
	require.Equal(t, "Ana", subs.links[0].AuthorName)
	require.Equal(t, subs.created[0].ID, subs.links[0].SubmissionID)

	require.Len(t, broadcaster.events, 1)
	require.Equal(t, dto.EventSubmissionAccepted, broadcaster.events[0].Type)
	require.True(t, broadcaster.committed[0], "accepted event must be published inside the store commit")
}

func TestSubmitFreezesQuestionContext(t *testing.T) {
	subs := &stubSubmissionRepo{}
	questions := &stubQuestionRepo{question: models.Question{
		ID:    "q-1",
		Title: "Original title",
		Text:  "Sum the array",
	}}
	svc := newTestSubmissionService(subs, questions, &recordingBroadcaster{}, nil)

	response, err := svc.Submit(context.Background(), dto.SubmitCodeRequest{
		AuthorName: "Ana",
		Code:       "total = sum(xs)",
		Language:   "python",
		QuestionID: strPtr("q-1"),
	})
	require.NoError(t, err)
	require.NotNil(t, response.Submission.Question)
	require.Equal(t, "Original title", response.Submission.Question.Title)

	frozen := subs.created[0].FrozenQuestion()
	require.NotNil(t, frozen)
	require.Equal(t, "Sum the array", frozen.Text)
}

func TestSubmitDuplicateSuppressed(t *testing.T) {
	subs := &stubSubmissionRepo{prior: []models.Submission{
		{AuthorName: "Ana", Code: "x=1", QuestionID: strPtr("q-1"), CreatedAt: time.Now().Add(-5 * time.Second)},
	}}
	questions := &stubQuestionRepo{question: models.Question{ID: "q-1", Text: "Write a loop"}}
	broadcaster := &recordingBroadcaster{}
	svc := newTestSubmissionService(subs, questions, broadcaster, nil)

	response, err := svc.Submit(context.Background(), dto.SubmitCodeRequest{
		AuthorName: "Ana",
		Code:       "x=1",
		Language:   "python",
		QuestionID: strPtr("q-1"),
	})
	require.NoError(t, err)

	require.False(t, response.Accepted)
	require.True(t, response.IsDuplicate)
	require.Equal(t, 2, response.SubmissionCount)
	require.Nil(t, response.Submission)

	require.Empty(t, subs.created)
	require.Empty(t, subs.links)
	require.Empty(t, broadcaster.events)
}

func TestSubmitSameCodeOutsideWindowAccepted(t *testing.T) {
	subs := &stubSubmissionRepo{prior: []models.Submission{
		{AuthorName: "Ana", Code: "x=1", QuestionID: strPtr("q-1"), CreatedAt: time.Now().Add(-40 * time.Second)},
	}}
	questions := &stubQuestionRepo{question: models.Question{ID: "q-1", Text: "Write a loop"}}
	svc := newTestSubmissionService(subs, questions, &recordingBroadcaster{}, nil)

	response, err := svc.Submit(context.Background(), dto.SubmitCodeRequest{
		AuthorName: "Ana",
		Code:       "x=1",
		Language:   "python",
		QuestionID: strPtr("q-1"),
	})
	require.NoError(t, err)

	require.True(t, response.Accepted)
	require.Equal(t, 2, response.SubmissionCount)
	require.Len(t, subs.created, 1)
}

func TestSubmitUnlinkedNeverSuppressed(t *testing.T) {
	subs := &stubSubmissionRepo{prior: []models.Submission{
		{AuthorName: "Ana", Code: "x=1", CreatedAt: time.Now().Add(-time.Second)},
	}}
	broadcaster := &recordingBroadcaster{}
	svc := newTestSubmissionService(subs, &stubQuestionRepo{}, broadcaster, nil)

	response, err := svc.Submit(context.Background(), dto.SubmitCodeRequest{
		AuthorName: "Ana",
		Code:       "x=1",
		Language:   "python",
	})
	require.NoError(t, err)

	require.True(t, response.Accepted)
	require.Equal(t, 2, response.SubmissionCount)
	require.Len(t, subs.created, 1)
	require.Nil(t, subs.created[0].QuestionID)
	require.Empty(t, subs.links)
	require.Equal(t, 90, response.Submission.Review.Score)
}

func TestSubmitEmptyCodeReviewedNotStored(t *testing.T) {
	subs := &stubSubmissionRepo{}
	broadcaster := &recordingBroadcaster{}
	svc := newTestSubmissionService(subs, &stubQuestionRepo{}, broadcaster, nil)

	response, err := svc.Submit(context.Background(), dto.SubmitCodeRequest{
		AuthorName: "Bo",
		Code:       "   \n\t",
		Language:   "python",
	})
	require.NoError(t, err)

	require.False(t, response.Accepted)
	require.False(t, response.IsDuplicate)
	require.Zero(t, response.SubmissionCount)
	require.NotNil(t, response.Review)
	require.False(t, response.Review.IsCorrect)
	require.Equal(t, 0, response.Review.Score)
	require.Equal(t, "no code provided", response.Review.Feedback)

	require.Empty(t, subs.created)
	require.Empty(t, broadcaster.events)
}

func TestSubmitRejectsMissingAuthor(t *testing.T) {
	svc := newTestSubmissionService(&stubSubmissionRepo{}, &stubQuestionRepo{}, &recordingBroadcaster{}, nil)

	for _, author := range []string{"", "   ", "<b></b>"} {
		_, err := svc.Submit(context.Background(), dto.SubmitCodeRequest{
			AuthorName: author,
			Code:       "x=1",
			Language:   "python",
		})
		require.ErrorIs(t, err, ErrAuthorRequired)
	}
}

func TestSubmitRejectsOverlongAuthor(t *testing.T) {
	svc := newTestSubmissionService(&stubSubmissionRepo{}, &stubQuestionRepo{}, &recordingBroadcaster{}, nil)

	_, err := svc.Submit(context.Background(), dto.SubmitCodeRequest{
		AuthorName: strings.Repeat("a", 51),
		Code:       "x=1",
		Language:   "python",
	})
	require.Error(t, err)
}

func TestSubmitDanglingQuestionReferenceProceedsUnlinked(t *testing.T) {
	subs := &stubSubmissionRepo{}
	svc := newTestSubmissionService(subs, &stubQuestionRepo{}, &recordingBroadcaster{}, nil)

	response, err := svc.Submit(context.Background(), dto.SubmitCodeRequest{
		AuthorName: "Ana",
		Code:       "print('hi')",
		Language:   "python",
		QuestionID: strPtr("gone"),
	})
	require.NoError(t, err)

	require.True(t, response.Accepted)
	require.Nil(t, response.Submission.QuestionID)
	require.Nil(t, response.Submission.Question)
	require.Equal(t, 90, response.Submission.Review.Score)
	require.Empty(t, subs.links)
}

func TestHistoryGroupsPartitionSubmissions(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	subs := &stubSubmissionRepo{byAuthor: []models.Submission{
		{ID: "s4", AuthorName: "Ana", QuestionID: strPtr("q-2"), CreatedAt: base.Add(3 * time.Minute)},
		{ID: "s3", AuthorName: "Ana", QuestionID: strPtr("q-1"), CreatedAt: base.Add(2 * time.Minute)},
		{ID: "s2", AuthorName: "Ana", CreatedAt: base.Add(time.Minute)},
		{ID: "s1", AuthorName: "Ana", QuestionID: strPtr("q-1"), CreatedAt: base},
	}}
	svc := newTestSubmissionService(subs, &stubQuestionRepo{}, &recordingBroadcaster{}, nil)

	groups, err := svc.History(context.Background(), "Ana", nil)
	require.NoError(t, err)
	require.Len(t, groups, 3)

	require.Equal(t, "q-2", groups[0].QuestionID)
	require.Len(t, groups[0].Submissions, 1)

	require.Equal(t, "q-1", groups[1].QuestionID)
	require.Len(t, groups[1].Submissions, 2)
	require.Equal(t, "s3", groups[1].Submissions[0].ID)
	require.Equal(t, "s1", groups[1].Submissions[1].ID)

	require.Equal(t, "", groups[2].QuestionID)
	require.Equal(t, "s2", groups[2].Submissions[0].ID)

	total := 0
	for _, group := range groups {
		total += len(group.Submissions)
	}
	require.Equal(t, len(subs.byAuthor), total)
}

func TestHistoryRequiresAuthor(t *testing.T) {
	svc := newTestSubmissionService(&stubSubmissionRepo{}, &stubQuestionRepo{}, &recordingBroadcaster{}, nil)

	_, err := svc.History(context.Background(), "  ", nil)
	require.ErrorIs(t, err, ErrAuthorRequired)
}

func TestClearAllBroadcasts(t *testing.T) {
	subs := &stubSubmissionRepo{}
	broadcaster := &recordingBroadcaster{}
	svc := newTestSubmissionService(subs, &stubQuestionRepo{}, broadcaster, nil)

	require.NoError(t, svc.ClearAll(context.Background()))
	require.True(t, subs.cleared)
	require.Len(t, broadcaster.events, 1)
	require.Equal(t, dto.EventAllSubmissionsCleared, broadcaster.events[0].Type)
	require.True(t, broadcaster.committed[0])
}

func TestStatsCountsStoredVolumes(t *testing.T) {
	subs := &stubSubmissionRepo{
		created: []models.Submission{{ID: "s1"}, {ID: "s2"}},
		links:   []models.HistoryLink{{SubmissionID: "s1"}},
	}
	questions := &stubQuestionRepo{question: models.Question{ID: "q-1"}}
	svc := newTestSubmissionService(subs, questions, &recordingBroadcaster{}, nil)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), stats.TotalQuestions)
	require.Equal(t, int64(2), stats.TotalSubmissions)
	require.Equal(t, int64(1), stats.TotalHistoryLinks)
}

func TestListCachesAndInvalidatesOnSubmit(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	subs := &stubSubmissionRepo{listed: []models.Submission{{ID: "s1", AuthorName: "Ana", Code: "x=1", Language: "python"}}}
	svc := newTestSubmissionService(subs, &stubQuestionRepo{}, &recordingBroadcaster{}, cache)

	first, err := svc.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, 1, subs.listCalls)

	second, err := svc.List(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, 1, subs.listCalls, "second read should be served from cache")

	_, err = svc.Submit(context.Background(), dto.SubmitCodeRequest{
		AuthorName: "Bo",
		Code:       "y=2",
		Language:   "python",
	})
	require.NoError(t, err)

	_, err = svc.List(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 2, subs.listCalls, "accepted submission should invalidate the cache")
}

func TestClearAllInvalidatesFilteredListCaches(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	subs := &stubSubmissionRepo{listed: []models.Submission{{ID: "s1", AuthorName: "Ana", Code: "x=1", Language: "python", QuestionID: strPtr("q-1")}}}
	svc := newTestSubmissionService(subs, &stubQuestionRepo{}, &recordingBroadcaster{}, cache)

	questionID := strPtr("q-1")
	_, err := svc.List(context.Background(), questionID)
	require.NoError(t, err)
	_, err = svc.List(context.Background(), questionID)
	require.NoError(t, err)
	require.Equal(t, 1, subs.listCalls)

	require.NoError(t, svc.ClearAll(context.Background()))

	// The question-scoped cache key must be gone too, not just the base one.
	_, err = svc.List(context.Background(), questionID)
	require.NoError(t, err)
	require.Equal(t, 2, subs.listCalls)
}
