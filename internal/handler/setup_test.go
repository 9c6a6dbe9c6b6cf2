package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/codeshare-labs/codeshare-api/internal/config"
	"github.com/codeshare-labs/codeshare-api/internal/handler"
	"github.com/codeshare-labs/codeshare-api/internal/models"
	"github.com/codeshare-labs/codeshare-api/internal/repository"
	"github.com/codeshare-labs/codeshare-api/internal/router"
	"github.com/codeshare-labs/codeshare-api/internal/service"
)

// testAppOptions lets a test intercept dependencies of the wired app.
type testAppOptions struct {
	wrapSubmissions func(repository.SubmissionRepository) repository.SubmissionRepository
}

// newTestApp wires the full application against a per-test in-memory
// database, with the realtime hub live so broadcasts exercise the same code
// path as production.
func newTestApp(t *testing.T) *fiber.App {
	return newTestAppWith(t, testAppOptions{})
}

func newTestAppWith(t *testing.T, opts testAppOptions) *fiber.App {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Question{}, &models.Submission{}, &models.HistoryLink{}))

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())

	questionRepo := repository.NewQuestionRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	if opts.wrapSubmissions != nil {
		submissionRepo = opts.wrapSubmissions(submissionRepo)
	}

	hub := service.NewHub(logger)
	presence := service.NewPresenceTracker(logger)
	realtimeService := service.NewRealtimeService(hub, presence, submissionRepo, questionRepo, logger)
	questionService := service.NewQuestionService(questionRepo, realtimeService, validate, logger)
	submissionService := service.NewSubmissionService(submissionRepo, questionRepo, realtimeService, nil, service.SubmissionConfig{}, validate, logger)

	cfg := config.Config{
		AppName:         "CodeShare API",
		AppEnv:          "test",
		DuplicateWindow: service.DefaultDuplicateWindow,
	}

	app := fiber.New()
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler: handler.NewSubmissionHandler(submissionService, logger),
		QuestionHandler:   handler.NewQuestionHandler(questionService, logger),
		RealtimeHandler:   handler.NewRealtimeHandler(realtimeService, logger),
	})

	return app
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func performRequest(t *testing.T, app *fiber.App, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)

	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) envelope {
	t.Helper()

	defer resp.Body.Close()
	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))

	return env
}

func decodeData(t *testing.T, env envelope, target interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, target))
}

func startFiberServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return "http://" + listener.Addr().String(), shutdown
}
