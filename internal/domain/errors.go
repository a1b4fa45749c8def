package domain

import "errors"

// Sentinel errors shared across the orchestration pipeline.
var (
	// ErrConfigNotFound is returned when a crawl config is missing,
	// soft-deleted, or inactive.
	ErrConfigNotFound = errors.New("crawl config not found")

	// ErrTaskLogNotFound is returned when a task log row cannot be resolved.
	ErrTaskLogNotFound = errors.New("task log not found")

	// ErrInvalidConfig is returned when a config has no usable source URLs.
	ErrInvalidConfig = errors.New("config has no usable source urls")

	// ErrAlreadyAnalyzing is returned when an analysis run is requested for
	// a batch that is currently being analyzed.
	ErrAlreadyAnalyzing = errors.New("analysis already in progress")

	// ErrCrawlNotSuccessful is returned when analysis is requested for a
	// task whose crawl did not complete successfully.
	ErrCrawlNotSuccessful = errors.New("crawl did not complete successfully")

	// ErrUnsupportedTransport is returned when an operation is not available
	// for the config's transport, e.g. re-crawling a legacy task.
	ErrUnsupportedTransport = errors.New("operation not supported for this transport")
)
