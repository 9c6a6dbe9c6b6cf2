package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/codeshare-labs/codeshare-api/internal/dto"
	"github.com/codeshare-labs/codeshare-api/internal/models"
	"github.com/codeshare-labs/codeshare-api/internal/observability"
	"github.com/codeshare-labs/codeshare-api/internal/repository"
)

// ErrAuthorRequired indicates the submission carried no usable author name.
var ErrAuthorRequired = errors.New("author name is required")

// SubmissionConfig tunes the ingestion pipeline.
type SubmissionConfig struct {
	// DuplicateWindow bounds how far back identical resubmissions are
	// suppressed. Zero selects DefaultDuplicateWindow.
	DuplicateWindow time.Duration
	// ListCacheTTL bounds the redis cache for submission listings.
	ListCacheTTL time.Duration
}

// SubmissionService orchestrates submission ingestion, listing, history
// aggregation and the clear-all operation.
type SubmissionService interface {
	Submit(ctx context.Context, payload dto.SubmitCodeRequest) (dto.SubmitCodeResponse, error)
	List(ctx context.Context, questionID *string) ([]dto.SubmissionResponse, error)
	History(ctx context.Context, author string, questionID *string) ([]dto.HistoryGroupResponse, error)
	ClearAll(ctx context.Context) error
	Stats(ctx context.Context) (dto.StatsResponse, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	questions   repository.QuestionRepository
	broadcaster Broadcaster
	cache       *redis.Client
	cacheTTL    time.Duration
	window      time.Duration
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewSubmissionService constructs the ingestion pipeline. The redis client is
// optional; a nil client disables the listing cache.
func NewSubmissionService(submissions repository.SubmissionRepository, questions repository.QuestionRepository, broadcaster Broadcaster, cache *redis.Client, cfg SubmissionConfig, validate *validator.Validate, logger zerolog.Logger) SubmissionService {
	window := cfg.DuplicateWindow
	if window <= 0 {
		window = DefaultDuplicateWindow
	}
	cacheTTL := cfg.ListCacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &submissionService{
		submissions: submissions,
		questions:   questions,
		broadcaster: broadcaster,
		cache:       cache,
		cacheTTL:    cacheTTL,
		window:      window,
		validator:   validate,
		logger:      logger.With().Str("component", "submission_service").Logger(),
		tracer:      otel.Tracer("github.com/codeshare-labs/codeshare-api/internal/service/submission"),
		now:         time.Now,
	}
}

// Submit runs the ingestion pipeline: resolve the question, review the code,
// consult the author's history for duplicates, then either persist and
// broadcast or reject with no side effects.
func (s *submissionService) Submit(ctx context.Context, payload dto.SubmitCodeRequest) (dto.SubmitCodeResponse, error) {
	payload.AuthorName = sanitizeAuthorName(payload.AuthorName)
	if payload.AuthorName == "" {
		return dto.SubmitCodeResponse{}, ErrAuthorRequired
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmitCodeResponse{}, err
	}

	// Empty code never reaches the store or the fan-out; the caller still
	// gets the hard-zero review back. SubmissionCount stays zero: a share
	// turned away here is not an attempt.
	if strings.TrimSpace(payload.Code) == "" {
		review := dto.NewReviewResponse(ReviewCode(payload.Code, payload.Language, ""))
		observability.SubmissionsIngested().WithLabelValues("empty").Inc()
		return dto.SubmitCodeResponse{Accepted: false, Review: &review}, nil
	}

	attrs := []attribute.KeyValue{
		attribute.String("submission.author", payload.AuthorName),
		attribute.String("submission.language", payload.Language),
	}
	if payload.QuestionID != nil {
		attrs = append(attrs, attribute.String("submission.question_id", *payload.QuestionID))
	}
	spanCtx, span := s.tracer.Start(ctx, "submission.ingest", trace.WithAttributes(attrs...))
	defer span.End()

	question, linked, err := s.resolveQuestion(spanCtx, payload.QuestionID)
	if err != nil {
		span.RecordError(err)
		return dto.SubmitCodeResponse{}, err
	}

	promptText := ""
	var questionRef *string
	if linked {
		promptText = question.Text
		questionRef = &question.ID
	}

	review := ReviewCode(payload.Code, payload.Language, promptText)

	prior, err := s.submissions.ListByAuthorAndQuestion(spanCtx, payload.AuthorName, questionRef)
	if err != nil {
		span.RecordError(err)
		return dto.SubmitCodeResponse{}, err
	}
	attempt := len(prior) + 1

	if linked && isDuplicate(payload.Code, prior, s.now(), s.window) {
		span.SetAttributes(attribute.Bool("submission.duplicate", true))
		observability.SubmissionsIngested().WithLabelValues("duplicate").Inc()
		s.logger.Debug().Str("author", payload.AuthorName).Str("question_id", question.ID).Msg("duplicate submission suppressed")

		return dto.SubmitCodeResponse{
			Accepted:        false,
			IsDuplicate:     true,
			SubmissionCount: attempt,
		}, nil
	}

	submission := models.Submission{
		AuthorName: payload.AuthorName,
		Code:       payload.Code,
		Language:   payload.Language,
		QuestionID: questionRef,
	}
	if err := submission.SetReview(review); err != nil {
		return dto.SubmitCodeResponse{}, fmt.Errorf("failed to encode review: %w", err)
	}
	if linked {
		if err := submission.FreezeQuestion(question); err != nil {
			return dto.SubmitCodeResponse{}, fmt.Errorf("failed to freeze question context: %w", err)
		}
	}

	// The store write and the broadcast it triggers are committed as one
	// unit: an observer attaching mid-commit waits, then finds the
	// submission in its snapshot instead of receiving it live.
	var response dto.SubmissionResponse
	if err := s.broadcaster.Commit(func() error {
		if err := s.submissions.Create(spanCtx, &submission); err != nil {
			return err
		}

		// The history link is written only after the submission write
		// succeeds. A crash between the two leaves a submission without its
		// link; the store is the unit of atomicity and this gap is accepted.
		if linked {
			link := models.HistoryLink{
				AuthorName:   payload.AuthorName,
				QuestionID:   question.ID,
				SubmissionID: submission.ID,
			}
			if err := s.submissions.CreateHistoryLink(spanCtx, &link); err != nil {
				return err
			}
		}

		s.invalidateListCache(spanCtx, questionRef)

		response = dto.NewSubmissionResponse(submission)
		s.broadcaster.Publish(dto.Event{Type: dto.EventSubmissionAccepted, Payload: response})
		return nil
	}); err != nil {
		span.RecordError(err)
		return dto.SubmitCodeResponse{}, err
	}

	observability.SubmissionsIngested().WithLabelValues("accepted").Inc()
	s.logger.Info().
		Str("submission_id", submission.ID).
		Str("author", payload.AuthorName).
		Int("score", review.Score).
		Int("attempt", attempt).
		Msg("submission accepted")

	return dto.SubmitCodeResponse{
		Accepted:        true,
		SubmissionCount: attempt,
		Submission:      &response,
	}, nil
}

// resolveQuestion looks up the referenced question. A dangling reference is
// not an error; the submission proceeds unlinked.
func (s *submissionService) resolveQuestion(ctx context.Context, questionID *string) (models.Question, bool, error) {
	if questionID == nil || strings.TrimSpace(*questionID) == "" {
		return models.Question{}, false, nil
	}

	question, err := s.questions.GetByID(ctx, *questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Debug().Str("question_id", *questionID).Msg("question reference not found, proceeding unlinked")
			return models.Question{}, false, nil
		}
		return models.Question{}, false, err
	}

	return question, true, nil
}

func (s *submissionService) List(ctx context.Context, questionID *string) ([]dto.SubmissionResponse, error) {
	cacheKey := s.listCacheKey(questionID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var responses []dto.SubmissionResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &responses); unmarshalErr == nil {
				s.logger.Debug().Str("key", cacheKey).Msg("submission list cache hit")
				return responses, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read submission list cache")
		}
	}

	submissions, err := s.submissions.List(ctx, repository.SubmissionFilter{QuestionID: questionID})
	if err != nil {
		return nil, err
	}

	responses := dto.NewSubmissionResponseSlice(submissions)

	if s.cache != nil {
		if payload, err := json.Marshal(responses); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store submission list cache")
			}
		}
	}

	return responses, nil
}

// History groups the author's submissions by question identity, newest first
// inside each group, groups ordered by most recent activity. Unlinked
// submissions form their own group under an empty question id so the groups
// always partition the author's full history.
func (s *submissionService) History(ctx context.Context, author string, questionID *string) ([]dto.HistoryGroupResponse, error) {
	author = sanitizeAuthorName(author)
	if author == "" {
		return nil, ErrAuthorRequired
	}

	submissions, err := s.submissions.ListByAuthor(ctx, author, questionID)
	if err != nil {
		return nil, err
	}

	groupIndex := make(map[string]int)
	groups := make([]models.HistoryGroup, 0)

	for _, submission := range submissions {
		key := ""
		if submission.QuestionID != nil {
			key = *submission.QuestionID
		}

		index, ok := groupIndex[key]
		if !ok {
			index = len(groups)
			groupIndex[key] = index
			groups = append(groups, models.HistoryGroup{AuthorName: author, QuestionID: key})
		}
		groups[index].Submissions = append(groups[index].Submissions, submission)
	}

	responses := make([]dto.HistoryGroupResponse, 0, len(groups))
	for _, group := range groups {
		responses = append(responses, dto.NewHistoryGroupResponse(group))
	}

	return responses, nil
}

func (s *submissionService) ClearAll(ctx context.Context) error {
	if err := s.broadcaster.Commit(func() error {
		if err := s.submissions.ClearAll(ctx); err != nil {
			return err
		}

		s.invalidateAllListCaches(ctx)
		s.broadcaster.Publish(dto.Event{Type: dto.EventAllSubmissionsCleared})
		return nil
	}); err != nil {
		return err
	}

	s.logger.Info().Msg("all submissions cleared")

	return nil
}

func (s *submissionService) Stats(ctx context.Context) (dto.StatsResponse, error) {
	totalQuestions, err := s.questions.Count(ctx)
	if err != nil {
		return dto.StatsResponse{}, err
	}

	totalSubmissions, err := s.submissions.Count(ctx)
	if err != nil {
		return dto.StatsResponse{}, err
	}

	totalLinks, err := s.submissions.CountHistoryLinks(ctx)
	if err != nil {
		return dto.StatsResponse{}, err
	}

	return dto.StatsResponse{
		TotalQuestions:    totalQuestions,
		TotalSubmissions:  totalSubmissions,
		TotalHistoryLinks: totalLinks,
	}, nil
}

func (s *submissionService) listCacheKey(questionID *string) string {
	if questionID != nil {
		return "codeshare:submissions:list:" + *questionID
	}
	return "codeshare:submissions:list"
}

func (s *submissionService) invalidateListCache(ctx context.Context, questionID *string) {
	if s.cache == nil {
		return
	}

	keys := []string{s.listCacheKey(nil)}
	if questionID != nil {
		keys = append(keys, s.listCacheKey(questionID))
	}

	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate submission list cache")
	}
}

// invalidateAllListCaches drops the base list key and every question-scoped
// one, so a clear-all never serves deleted submissions from cache.
func (s *submissionService) invalidateAllListCaches(ctx context.Context) {
	if s.cache == nil {
		return
	}

	iter := s.cache.Scan(ctx, 0, s.listCacheKey(nil)+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to scan submission list cache keys")
		return
	}
	if len(keys) == 0 {
		return
	}

	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate submission list cache")
	}
}
