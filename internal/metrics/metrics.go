// Package metrics tracks pipeline-wide counters for crawl and analysis
// runs. A nil *Tracker is valid and records nothing, so callers can stay
// uninstrumented in tests.
package metrics

import (
	"sync"
	"time"
)

// Tracker accumulates counters across the lifetime of the process.
type Tracker struct {
	mu sync.Mutex

	startTime time.Time

	crawlsStarted   int64
	crawlsSucceeded int64
	crawlsFailed    int64
	lastCrawlTime   time.Time

	analysesStarted   int64
	analysesCompleted int64
	analysesFailed    int64

	articlesAnalyzed int64
	articlesSkipped  int64
	articlesFailed   int64
}

// Snapshot is a point-in-time copy of the tracker, shaped for JSON.
type Snapshot struct {
	UptimeSeconds int64 `json:"uptimeSeconds"`

	CrawlsStarted   int64  `json:"crawlsStarted"`
	CrawlsSucceeded int64  `json:"crawlsSucceeded"`
	CrawlsFailed    int64  `json:"crawlsFailed"`
	LastCrawlTime   string `json:"lastCrawlTime,omitempty"`

	AnalysesStarted   int64 `json:"analysesStarted"`
	AnalysesCompleted int64 `json:"analysesCompleted"`
	AnalysesFailed    int64 `json:"analysesFailed"`

	ArticlesAnalyzed int64 `json:"articlesAnalyzed"`
	ArticlesSkipped  int64 `json:"articlesSkipped"`
	ArticlesFailed   int64 `json:"articlesFailed"`
}

// NewTracker creates a tracker anchored at the current time.
func NewTracker() *Tracker {
	return &Tracker{startTime: time.Now()}
}

// CrawlStarted records a crawl entering the processing state.
func (t *Tracker) CrawlStarted() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.crawlsStarted++
}

// CrawlFinished records a crawl reaching a terminal state.
func (t *Tracker) CrawlFinished(success bool) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if success {
		t.crawlsSucceeded++
	} else {
		t.crawlsFailed++
	}
	t.lastCrawlTime = time.Now()
}

// AnalysisStarted records a batch analysis run winning its status swap.
func (t *Tracker) AnalysisStarted() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.analysesStarted++
}

// AnalysisFinished records a run outcome along with its per-article counts.
func (t *Tracker) AnalysisFinished(success bool, analyzed, skipped, failed int) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if success {
		t.analysesCompleted++
	} else {
		t.analysesFailed++
	}
	t.articlesAnalyzed += int64(analyzed)
	t.articlesSkipped += int64(skipped)
	t.articlesFailed += int64(failed)
}

// Snapshot copies the current counters.
func (t *Tracker) Snapshot() Snapshot {
	if t == nil {
		return Snapshot{}
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		UptimeSeconds:     int64(time.Since(t.startTime).Seconds()),
		CrawlsStarted:     t.crawlsStarted,
		CrawlsSucceeded:   t.crawlsSucceeded,
		CrawlsFailed:      t.crawlsFailed,
		AnalysesStarted:   t.analysesStarted,
		AnalysesCompleted: t.analysesCompleted,
		AnalysesFailed:    t.analysesFailed,
		ArticlesAnalyzed:  t.articlesAnalyzed,
		ArticlesSkipped:   t.articlesSkipped,
		ArticlesFailed:    t.articlesFailed,
	}
	if !t.lastCrawlTime.IsZero() {
		snap.LastCrawlTime = t.lastCrawlTime.Format(time.RFC3339)
	}
	return snap
}
