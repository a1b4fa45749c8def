package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/regradar/internal/domain"
	"github.com/jonesrussell/regradar/internal/logger"
	"github.com/jonesrussell/regradar/internal/worker"
)

type stubTaskLogStore struct {
	logs map[string]*domain.TaskLog
}

func (s *stubTaskLogStore) GetByTaskID(_ context.Context, taskID string) (*domain.TaskLog, error) {
	log, ok := s.logs[taskID]
	if !ok {
		return nil, domain.ErrTaskLogNotFound
	}
	clone := *log
	return &clone, nil
}

func (s *stubTaskLogStore) List(_ context.Context, filter domain.TaskLogFilter) ([]*domain.TaskLog, error) {
	logs := []*domain.TaskLog{}
	for _, log := range s.logs {
		if filter.Status != "" && log.Status != filter.Status {
			continue
		}
		clone := *log
		logs = append(logs, &clone)
	}
	return logs, nil
}

func (s *stubTaskLogStore) ListByConfig(_ context.Context, _ int64, _, _ int) ([]*domain.TaskLog, error) {
	return nil, nil
}

type stubReCrawler struct {
	log *domain.TaskLog
	err error
}

func (s *stubReCrawler) ReCrawl(_ context.Context, _ string) (*domain.TaskLog, error) {
	return s.log, s.err
}

type stubRunner struct {
	err    error
	logID  int64
	userID int64
	calls  int
}

func (s *stubRunner) RunAsync(logID, userID int64) error {
	s.calls++
	s.logID = logID
	s.userID = userID
	return s.err
}

func analyzableLog(taskID string) *domain.TaskLog {
	batchPath := "crawl_files/batch_20250614_093000"
	return &domain.TaskLog{
		LogID:          7,
		TaskID:         taskID,
		Status:         domain.CrawlSuccess,
		BatchPath:      &batchPath,
		AnalysisStatus: domain.AnalysisPending,
	}
}

func newTasksRouter(store *stubTaskLogStore, recrawler *stubReCrawler, runner *stubRunner) *gin.Engine {
	gin.SetMode(gin.TestMode)

	handler := NewTasksHandler(store, recrawler, runner, runner, logger.NewNoOp())

	router := gin.New()
	router.GET("/api/v1/tasks", handler.List)
	router.GET("/api/v1/tasks/:taskId", handler.Get)
	router.POST("/api/v1/tasks/:taskId/recrawl", handler.ReCrawl)
	router.POST("/api/v1/tasks/:taskId/analyze-policies", handler.AnalyzePolicies)
	return router
}

func doRequest(router *gin.Engine, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetTaskNotFound(t *testing.T) {
	router := newTasksRouter(&stubTaskLogStore{logs: map[string]*domain.TaskLog{}}, &stubReCrawler{}, &stubRunner{})

	rec := doRequest(router, http.MethodGet, "/api/v1/tasks/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetTask(t *testing.T) {
	store := &stubTaskLogStore{logs: map[string]*domain.TaskLog{"abc": analyzableLog("abc")}}
	router := newTasksRouter(store, &stubReCrawler{}, &stubRunner{})

	rec := doRequest(router, http.MethodGet, "/api/v1/tasks/abc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"abc"`)
}

func TestListTasksFiltersByStatus(t *testing.T) {
	failed := analyzableLog("def")
	failed.Status = domain.CrawlFailure
	store := &stubTaskLogStore{logs: map[string]*domain.TaskLog{
		"abc": analyzableLog("abc"),
		"def": failed,
	}}
	router := newTasksRouter(store, &stubReCrawler{}, &stubRunner{})

	rec := doRequest(router, http.MethodGet, "/api/v1/tasks?status=failure", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"def"`)
	require.NotContains(t, rec.Body.String(), `"abc"`)

	rec = doRequest(router, http.MethodGet, "/api/v1/tasks?configId=zero", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeQueuesRun(t *testing.T) {
	store := &stubTaskLogStore{logs: map[string]*domain.TaskLog{"abc": analyzableLog("abc")}}
	runner := &stubRunner{}
	router := newTasksRouter(store, &stubReCrawler{}, runner)

	rec := doRequest(router, http.MethodPost, "/api/v1/tasks/abc/analyze-policies",
		map[string]string{UserIDHeader: "42"})

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, 1, runner.calls)
	require.EqualValues(t, 7, runner.logID)
	require.EqualValues(t, 42, runner.userID)
}

func TestAnalyzeRequiresUserHeader(t *testing.T) {
	store := &stubTaskLogStore{logs: map[string]*domain.TaskLog{"abc": analyzableLog("abc")}}
	runner := &stubRunner{}
	router := newTasksRouter(store, &stubReCrawler{}, runner)

	for _, header := range []map[string]string{nil, {UserIDHeader: "not-a-number"}, {UserIDHeader: "0"}} {
		rec := doRequest(router, http.MethodPost, "/api/v1/tasks/abc/analyze-policies", header)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	}
	require.Zero(t, runner.calls)
}

func TestAnalyzeConflictsWhileAnalyzing(t *testing.T) {
	log := analyzableLog("abc")
	log.AnalysisStatus = domain.AnalysisAnalyzing
	store := &stubTaskLogStore{logs: map[string]*domain.TaskLog{"abc": log}}
	router := newTasksRouter(store, &stubReCrawler{}, &stubRunner{})

	rec := doRequest(router, http.MethodPost, "/api/v1/tasks/abc/analyze-policies",
		map[string]string{UserIDHeader: "42"})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestAnalyzeRejectsFailedCrawl(t *testing.T) {
	log := analyzableLog("abc")
	log.Status = domain.CrawlFailure
	store := &stubTaskLogStore{logs: map[string]*domain.TaskLog{"abc": log}}
	router := newTasksRouter(store, &stubReCrawler{}, &stubRunner{})

	rec := doRequest(router, http.MethodPost, "/api/v1/tasks/abc/analyze-policies",
		map[string]string{UserIDHeader: "42"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyzeQueueFull(t *testing.T) {
	store := &stubTaskLogStore{logs: map[string]*domain.TaskLog{"abc": analyzableLog("abc")}}
	runner := &stubRunner{err: worker.ErrQueueFull}
	router := newTasksRouter(store, &stubReCrawler{}, runner)

	rec := doRequest(router, http.MethodPost, "/api/v1/tasks/abc/analyze-policies",
		map[string]string{UserIDHeader: "42"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestReCrawlAccepted(t *testing.T) {
	log := analyzableLog("abc")
	log.Status = domain.CrawlProcessing
	router := newTasksRouter(
		&stubTaskLogStore{logs: map[string]*domain.TaskLog{}},
		&stubReCrawler{log: log},
		&stubRunner{})

	rec := doRequest(router, http.MethodPost, "/api/v1/tasks/abc/recrawl", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
}

func TestReCrawlConflictsWhileAnalyzing(t *testing.T) {
	router := newTasksRouter(
		&stubTaskLogStore{logs: map[string]*domain.TaskLog{}},
		&stubReCrawler{err: domain.ErrAlreadyAnalyzing},
		&stubRunner{})

	rec := doRequest(router, http.MethodPost, "/api/v1/tasks/abc/recrawl", nil)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestReCrawlNotFound(t *testing.T) {
	router := newTasksRouter(
		&stubTaskLogStore{logs: map[string]*domain.TaskLog{}},
		&stubReCrawler{err: domain.ErrTaskLogNotFound},
		&stubRunner{})

	rec := doRequest(router, http.MethodPost, "/api/v1/tasks/abc/recrawl", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
