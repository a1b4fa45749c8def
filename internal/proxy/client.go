// Package proxy provides the HTTP client for the crawl proxy service,
// which performs the actual crawling and AI analysis on our behalf.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jonesrussell/regradar/internal/domain"
)

const (
	// DefaultBaseURL is the default base URL for the proxy service.
	DefaultBaseURL = "http://localhost:5000"
	// DefaultTimeout is the default timeout for proxy calls. Crawls are
	// slow; the proxy only answers once the whole batch is written.
	DefaultTimeout = 10 * time.Minute
	// ResultBase is where the proxy writes crawl batches, relative to its
	// own working directory. It is fixed on the proxy side, so result
	// texts always name batches under this prefix regardless of where we
	// mount them locally.
	ResultBase = "crawl_files"
)

// Client is an HTTP client for the crawl proxy service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option is a function that configures a Client.
type Option func(*Client)

// WithBaseURL sets the base URL for the proxy service.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the timeout for proxy calls.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new proxy service client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// envelope is the outer response shape of every proxy call. Data is a
// JSON document serialized into a string.
type envelope struct {
	Success bool   `json:"success"`
	Method  string `json:"method"`
	Data    string `json:"data"`
}

// CrawlRequest asks the proxy to crawl one listing URL.
type CrawlRequest struct {
	ListURL     string `json:"listUrl"`
	SourceName  string `json:"sourceName"`
	MaxArticles int    `json:"maxArticles"`
	TaskID      string `json:"taskId"`
	UseSkill    bool   `json:"useSkill"`
}

// CrawlResult is the parsed outcome of one crawl call.
type CrawlResult struct {
	// BatchPath is the batch directory the proxy wrote, extracted from
	// the result text. Empty when the result did not name one.
	BatchPath string
	// RawResult is the proxy's free-form result text.
	RawResult string
	// PermissionDenials lists URLs the proxy was not allowed to fetch.
	// A non-empty list means the crawl failed.
	PermissionDenials []string
}

// articleCountPattern matches the crawled-article count the proxy reports
// in its result text, e.g. "成功爬取 5 篇文章".
var articleCountPattern = regexp.MustCompile(`成功爬取\s*(\d+)`)

// FallbackArticleCount parses the article count out of the result text.
// Used when the batch manifest cannot be read. Returns 0 when the text
// does not report one.
func (r *CrawlResult) FallbackArticleCount() int {
	match := articleCountPattern.FindStringSubmatch(r.RawResult)
	if match == nil {
		return 0
	}
	count, err := strconv.Atoi(match[1])
	if err != nil {
		return 0
	}
	return count
}

// crawlData is the inner document of a crawl envelope.
type crawlData struct {
	Result            string   `json:"result"`
	PermissionDenials []string `json:"permission_denials"`
}

// Crawl asks the proxy to crawl a listing URL and waits for the batch to
// be written. An unparseable result text is not an error: the crawl
// succeeded, we just could not locate the batch directory.
func (c *Client) Crawl(ctx context.Context, req *CrawlRequest) (*CrawlResult, error) {
	data, err := c.invoke(ctx, "/api/crawl", req)
	if err != nil {
		return nil, err
	}

	var parsed crawlData
	if unmarshalErr := json.Unmarshal(data, &parsed); unmarshalErr != nil {
		// The proxy sometimes answers with bare result text.
		parsed.Result = string(data)
	}

	return &CrawlResult{
		BatchPath:         extractBatchPath(parsed.Result),
		RawResult:         parsed.Result,
		PermissionDenials: parsed.PermissionDenials,
	}, nil
}

// analyzeRequest carries one article plus the user's product context.
type analyzeRequest struct {
	Content  string `json:"content"`
	Products string `json:"products"`
}

// AnalyzePolicy asks the proxy to analyze one policy article against the
// user's product portfolio.
func (c *Client) AnalyzePolicy(ctx context.Context, content, productsJSON string) (*domain.PolicyAnalysisResult, error) {
	data, err := c.invoke(ctx, "/analyze-policy", &analyzeRequest{Content: content, Products: productsJSON})
	if err != nil {
		return nil, err
	}

	var result domain.PolicyAnalysisResult
	if unmarshalErr := json.Unmarshal(data, &result); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse policy analysis result: %w", unmarshalErr)
	}

	return &result, nil
}

// AnalyzeCompetitor asks the proxy to analyze one competitor article
// against the user's product portfolio.
func (c *Client) AnalyzeCompetitor(ctx context.Context, content, productsJSON string) (*domain.CompetitorAnalysisResult, error) {
	data, err := c.invoke(ctx, "/analyze-competitor", &analyzeRequest{Content: content, Products: productsJSON})
	if err != nil {
		return nil, err
	}

	var result domain.CompetitorAnalysisResult
	if unmarshalErr := json.Unmarshal(data, &result); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse competitor analysis result: %w", unmarshalErr)
	}

	return &result, nil
}

// invoke posts a JSON payload to the proxy and returns the inner data
// document from the response envelope.
func (c *Client) invoke(ctx context.Context, path string, payload any) ([]byte, error) {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return nil, fmt.Errorf("failed to construct URL: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrRemoteUnreachable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: status %d", ErrRemoteServerError, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		return nil, fmt.Errorf("%w: status %d: %s", ErrRemoteBadRequest, resp.StatusCode, truncate(respBody))
	}

	var env envelope
	if unmarshalErr := json.Unmarshal(respBody, &env); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse response envelope: %w", unmarshalErr)
	}

	if !env.Success {
		return nil, fmt.Errorf("%w: method %s: %s", ErrEnvelopeFailed, env.Method, truncate([]byte(env.Data)))
	}

	return []byte(env.Data), nil
}

// batchPathPattern matches a batch directory token in result text, e.g.
// "crawl_files/batch_20250614_093000/".
var batchPathPattern = regexp.MustCompile(ResultBase + `/[A-Za-z0-9._\-]+/?`)

// extractBatchPath pulls the batch directory out of free-form result text.
func extractBatchPath(result string) string {
	match := batchPathPattern.FindString(result)
	return strings.TrimSuffix(match, "/")
}

const maxErrorBody = 200

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
