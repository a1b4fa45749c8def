package crawl

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/regradar/internal/domain"
	"github.com/jonesrussell/regradar/internal/logger"
	"github.com/jonesrussell/regradar/internal/proxy"
	"github.com/jonesrussell/regradar/internal/queue"
)

type fakeConfigStore struct {
	configs     map[int64]*domain.CrawlConfig
	resultPaths map[int64]string
}

func newFakeConfigStore(cfgs ...*domain.CrawlConfig) *fakeConfigStore {
	s := &fakeConfigStore{
		configs:     make(map[int64]*domain.CrawlConfig),
		resultPaths: make(map[int64]string),
	}
	for _, cfg := range cfgs {
		s.configs[cfg.ID] = cfg
	}
	return s
}

func (s *fakeConfigStore) GetByID(_ context.Context, id int64) (*domain.CrawlConfig, error) {
	cfg, ok := s.configs[id]
	if !ok {
		return nil, domain.ErrConfigNotFound
	}
	return cfg, nil
}

func (s *fakeConfigStore) SetResultPath(_ context.Context, id int64, resultPath string) error {
	s.resultPaths[id] = resultPath
	return nil
}

type fakeTaskLogStore struct {
	mu     sync.Mutex
	nextID int64
	logs   map[int64]*domain.TaskLog
}

func newFakeTaskLogStore() *fakeTaskLogStore {
	return &fakeTaskLogStore{logs: make(map[int64]*domain.TaskLog)}
}

func (s *fakeTaskLogStore) Create(_ context.Context, log *domain.TaskLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	log.LogID = s.nextID
	clone := *log
	s.logs[log.LogID] = &clone
	return nil
}

func (s *fakeTaskLogStore) GetByTaskID(_ context.Context, taskID string) (*domain.TaskLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, log := range s.logs {
		if log.TaskID == taskID {
			clone := *log
			return &clone, nil
		}
	}
	return nil, domain.ErrTaskLogNotFound
}

func (s *fakeTaskLogStore) Update(_ context.Context, log *domain.TaskLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.logs[log.LogID]; !ok {
		return domain.ErrTaskLogNotFound
	}
	clone := *log
	s.logs[log.LogID] = &clone
	return nil
}

func (s *fakeTaskLogStore) get(logID int64) *domain.TaskLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *s.logs[logID]
	return &clone
}

type fakeCrawler struct {
	result *proxy.CrawlResult
	err    error
	calls  int
}

func (c *fakeCrawler) Crawl(_ context.Context, _ *proxy.CrawlRequest) (*proxy.CrawlResult, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

type fakePublisher struct {
	messages []*queue.CrawlTaskMessage
}

func (p *fakePublisher) Enqueue(_ context.Context, task *queue.CrawlTaskMessage) (string, error) {
	p.messages = append(p.messages, task)
	return "1-0", nil
}

func waitFor(t *testing.T, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func proxyConfig(id int64) *domain.CrawlConfig {
	return &domain.CrawlConfig{
		ID:         id,
		TargetName: "东方财富银行频道",
		SourceURLs: "https://bank.eastmoney.com/list\n",
		Transport:  domain.TransportProxy,
		IsActive:   true,
	}
}

func writeTestBatch(t *testing.T, articleCount int) string {
	t.Helper()

	dir := t.TempDir()
	manifest, err := json.Marshal(map[string]any{
		"articleCount": articleCount,
		"categories":   map[string]int{"policy": articleCount},
		"articles":     []any{},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.json"), manifest, 0o644))
	return dir
}

func TestTriggerSyncSuccess(t *testing.T) {
	batchDir := writeTestBatch(t, 4)

	configs := newFakeConfigStore(proxyConfig(7))
	taskLogs := newFakeTaskLogStore()
	crawler := &fakeCrawler{result: &proxy.CrawlResult{BatchPath: batchDir, RawResult: "ok"}}

	o := NewOrchestrator(configs, taskLogs, crawler, &fakePublisher{}, "", logger.NewNoOp(), 10)

	log, err := o.TriggerSync(context.Background(), 7, TriggerManual)
	require.NoError(t, err)
	require.NotEmpty(t, log.TaskID)
	require.NotContains(t, log.TaskID, "-")

	stored := taskLogs.get(log.LogID)
	require.Equal(t, domain.CrawlSuccess, stored.Status)
	require.Equal(t, domain.AnalysisPending, stored.AnalysisStatus)
	require.NotNil(t, stored.EndTime)
	require.NotNil(t, stored.BatchPath)
	require.Equal(t, batchDir, *stored.BatchPath)
	require.NotNil(t, stored.ArticleCount)
	require.Equal(t, 4, *stored.ArticleCount)

	// Batch path is mirrored onto the config.
	require.Equal(t, batchDir, configs.resultPaths[7])
}

func TestTriggerSyncResolvesRelativeBatchPath(t *testing.T) {
	base := t.TempDir()
	batchDir := filepath.Join(base, "batch_20250614_093000")
	require.NoError(t, os.Mkdir(batchDir, 0o755))
	manifest, err := json.Marshal(map[string]any{
		"articleCount": 3,
		"articles":     []any{},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(batchDir, "metadata.json"), manifest, 0o644))

	configs := newFakeConfigStore(proxyConfig(7))
	taskLogs := newFakeTaskLogStore()
	// The proxy names the batch relative to its own working dir.
	crawler := &fakeCrawler{result: &proxy.CrawlResult{
		BatchPath: "crawl_files/batch_20250614_093000",
		RawResult: "ok",
	}}

	o := NewOrchestrator(configs, taskLogs, crawler, &fakePublisher{}, base, logger.NewNoOp(), 10)

	log, err := o.TriggerSync(context.Background(), 7, TriggerManual)
	require.NoError(t, err)

	stored := taskLogs.get(log.LogID)
	require.Equal(t, domain.CrawlSuccess, stored.Status)
	require.NotNil(t, stored.BatchPath)
	require.Equal(t, "crawl_files/batch_20250614_093000", *stored.BatchPath)
	require.NotNil(t, stored.ArticleCount, "manifest is read from the configured base dir")
	require.Equal(t, 3, *stored.ArticleCount)
}

func TestTriggerSyncCountsCategoriesFromArticles(t *testing.T) {
	dir := t.TempDir()
	// No precomputed categories map; the counts come from the list.
	manifest, err := json.Marshal(map[string]any{
		"articleCount": 3,
		"articles": []map[string]any{
			{"filename": "a.md", "category": "policy"},
			{"filename": "b.md", "category": "policy"},
			{"filename": "c.md", "category": "competitor"},
		},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "metadata.json"), manifest, 0o644))

	configs := newFakeConfigStore(proxyConfig(7))
	taskLogs := newFakeTaskLogStore()
	crawler := &fakeCrawler{result: &proxy.CrawlResult{BatchPath: dir, RawResult: "ok"}}

	o := NewOrchestrator(configs, taskLogs, crawler, &fakePublisher{}, "", logger.NewNoOp(), 10)

	log, err := o.TriggerSync(context.Background(), 7, TriggerManual)
	require.NoError(t, err)

	stored := taskLogs.get(log.LogID)
	require.Equal(t, domain.JSONBMap{"policy": 2, "competitor": 1}, stored.CategoryStats)
}

func TestTriggerSyncCrawlError(t *testing.T) {
	configs := newFakeConfigStore(proxyConfig(7))
	taskLogs := newFakeTaskLogStore()
	crawler := &fakeCrawler{err: proxy.ErrRemoteUnreachable}

	o := NewOrchestrator(configs, taskLogs, crawler, &fakePublisher{}, "", logger.NewNoOp(), 10)

	log, err := o.TriggerSync(context.Background(), 7, TriggerManual)
	require.NoError(t, err, "trigger itself succeeds, the attempt fails on the log")

	stored := taskLogs.get(log.LogID)
	require.Equal(t, domain.CrawlFailure, stored.Status)
	require.Equal(t, domain.AnalysisPending, stored.AnalysisStatus, "analysis never advances on a failed crawl")
	require.NotNil(t, stored.ErrorMessage)
}

func TestTriggerSyncPermissionDenials(t *testing.T) {
	configs := newFakeConfigStore(proxyConfig(7))
	taskLogs := newFakeTaskLogStore()
	crawler := &fakeCrawler{result: &proxy.CrawlResult{
		PermissionDenials: []string{"https://example.com/blocked"},
	}}

	o := NewOrchestrator(configs, taskLogs, crawler, &fakePublisher{}, "", logger.NewNoOp(), 10)

	log, err := o.TriggerSync(context.Background(), 7, TriggerManual)
	require.NoError(t, err)

	stored := taskLogs.get(log.LogID)
	require.Equal(t, domain.CrawlFailure, stored.Status)
	require.Contains(t, *stored.ErrorMessage, "https://example.com/blocked")
}

func TestTriggerSyncSuccessWithoutBatchPath(t *testing.T) {
	configs := newFakeConfigStore(proxyConfig(7))
	taskLogs := newFakeTaskLogStore()
	crawler := &fakeCrawler{result: &proxy.CrawlResult{RawResult: "free text, no batch token"}}

	o := NewOrchestrator(configs, taskLogs, crawler, &fakePublisher{}, "", logger.NewNoOp(), 10)

	log, err := o.TriggerSync(context.Background(), 7, TriggerManual)
	require.NoError(t, err)

	stored := taskLogs.get(log.LogID)
	require.Equal(t, domain.CrawlSuccess, stored.Status, "unparseable result is still a success")
	require.Nil(t, stored.BatchPath)
	require.Nil(t, stored.ArticleCount)
}

func TestTriggerInvalidConfigCreatesNoLog(t *testing.T) {
	cfg := proxyConfig(7)
	cfg.SourceURLs = "   \n  "
	configs := newFakeConfigStore(cfg)
	taskLogs := newFakeTaskLogStore()

	o := NewOrchestrator(configs, taskLogs, &fakeCrawler{}, &fakePublisher{}, "", logger.NewNoOp(), 10)

	_, err := o.Trigger(context.Background(), 7, TriggerManual)
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
	require.Empty(t, taskLogs.logs, "no task log for a config that cannot be crawled")
}

func TestTriggerUnknownConfig(t *testing.T) {
	o := NewOrchestrator(newFakeConfigStore(), newFakeTaskLogStore(), &fakeCrawler{}, &fakePublisher{}, "", logger.NewNoOp(), 10)

	_, err := o.Trigger(context.Background(), 99, TriggerManual)
	require.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestTriggerInactiveConfig(t *testing.T) {
	cfg := proxyConfig(7)
	cfg.IsActive = false

	o := NewOrchestrator(newFakeConfigStore(cfg), newFakeTaskLogStore(), &fakeCrawler{}, &fakePublisher{}, "", logger.NewNoOp(), 10)

	_, err := o.Trigger(context.Background(), 7, TriggerManual)
	require.ErrorIs(t, err, domain.ErrConfigNotFound)
}

func TestLegacyTransportEnqueues(t *testing.T) {
	cfg := proxyConfig(7)
	cfg.Transport = domain.TransportLegacy
	cfg.SourceURLs = "https://a.example.com\nhttps://b.example.com"

	configs := newFakeConfigStore(cfg)
	taskLogs := newFakeTaskLogStore()
	publisher := &fakePublisher{}

	o := NewOrchestrator(configs, taskLogs, &fakeCrawler{}, publisher, "", logger.NewNoOp(), 10)

	log, err := o.TriggerSync(context.Background(), 7, TriggerManual)
	require.NoError(t, err)

	require.Len(t, publisher.messages, 1)
	msg := publisher.messages[0]
	require.Equal(t, log.TaskID, msg.TaskID)
	require.Equal(t, int64(7), msg.ConfigID)
	require.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, msg.TargetURLs)
	require.Equal(t, TriggerManual, msg.TriggerType)

	// Legacy workers own the terminal status.
	stored := taskLogs.get(log.LogID)
	require.Equal(t, domain.CrawlProcessing, stored.Status)
}

func TestReCrawlResetsLog(t *testing.T) {
	batchDir := writeTestBatch(t, 2)

	configs := newFakeConfigStore(proxyConfig(7))
	taskLogs := newFakeTaskLogStore()
	crawler := &fakeCrawler{result: &proxy.CrawlResult{BatchPath: batchDir}}

	o := NewOrchestrator(configs, taskLogs, crawler, &fakePublisher{}, "", logger.NewNoOp(), 10)

	first, err := o.TriggerSync(context.Background(), 7, TriggerManual)
	require.NoError(t, err)

	// Pretend analysis already ran.
	stored := taskLogs.get(first.LogID)
	stored.AnalysisStatus = domain.AnalysisCompleted
	result := `{"total":2}`
	stored.AnalysisResult = &result
	require.NoError(t, taskLogs.Update(context.Background(), stored))

	crawler.err = errors.New("boom")
	crawler.result = nil

	log, err := o.ReCrawl(context.Background(), first.TaskID)
	require.NoError(t, err)
	require.Equal(t, first.TaskID, log.TaskID, "re-crawl reuses the task id")

	// Wait for the async attempt to land its terminal write.
	waitFor(t, func() bool {
		return taskLogs.get(first.LogID).Status == domain.CrawlFailure
	})

	final := taskLogs.get(first.LogID)
	require.Equal(t, domain.AnalysisPending, final.AnalysisStatus, "re-crawl resets the analysis lifecycle")
	require.Nil(t, final.AnalysisResult)
}

func TestReCrawlRejectedWhileAnalyzing(t *testing.T) {
	batchDir := writeTestBatch(t, 1)

	configs := newFakeConfigStore(proxyConfig(7))
	taskLogs := newFakeTaskLogStore()
	crawler := &fakeCrawler{result: &proxy.CrawlResult{BatchPath: batchDir}}

	o := NewOrchestrator(configs, taskLogs, crawler, &fakePublisher{}, "", logger.NewNoOp(), 10)

	first, err := o.TriggerSync(context.Background(), 7, TriggerManual)
	require.NoError(t, err)

	stored := taskLogs.get(first.LogID)
	stored.AnalysisStatus = domain.AnalysisAnalyzing
	require.NoError(t, taskLogs.Update(context.Background(), stored))

	_, err = o.ReCrawl(context.Background(), first.TaskID)
	require.ErrorIs(t, err, domain.ErrAlreadyAnalyzing)
}

func TestReCrawlRejectedForLegacyTransport(t *testing.T) {
	cfg := proxyConfig(7)
	cfg.Transport = domain.TransportLegacy

	configs := newFakeConfigStore(cfg)
	taskLogs := newFakeTaskLogStore()

	log := &domain.TaskLog{
		TaskID:         NewTaskID(),
		ConfigID:       7,
		TargetURL:      "https://a.example.com",
		Status:         domain.CrawlFailure,
		AnalysisStatus: domain.AnalysisPending,
	}
	require.NoError(t, taskLogs.Create(context.Background(), log))

	o := NewOrchestrator(configs, taskLogs, &fakeCrawler{}, &fakePublisher{}, "", logger.NewNoOp(), 10)

	_, err := o.ReCrawl(context.Background(), log.TaskID)
	require.ErrorIs(t, err, domain.ErrUnsupportedTransport)
}

func TestReCrawlRejectedWhileProcessing(t *testing.T) {
	configs := newFakeConfigStore(proxyConfig(7))
	taskLogs := newFakeTaskLogStore()

	log := &domain.TaskLog{
		TaskID:         NewTaskID(),
		ConfigID:       7,
		TargetURL:      "https://bank.eastmoney.com/list",
		Status:         domain.CrawlProcessing,
		AnalysisStatus: domain.AnalysisPending,
	}
	require.NoError(t, taskLogs.Create(context.Background(), log))

	o := NewOrchestrator(configs, taskLogs, &fakeCrawler{}, &fakePublisher{}, "", logger.NewNoOp(), 10)

	_, err := o.ReCrawl(context.Background(), log.TaskID)
	require.Error(t, err, "a crawl in flight cannot be re-crawled")
}
