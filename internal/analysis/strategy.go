// Package analysis runs batch analysis over crawled articles: policies
// and competitor activity each get their own persistence strategy behind
// a shared orchestrator.
package analysis

import (
	"context"

	"github.com/jonesrussell/regradar/internal/domain"
)

// Outcome classifies what a strategy did with one article.
type Outcome int

const (
	// OutcomeSaved means the article produced new or updated rows.
	OutcomeSaved Outcome = iota
	// OutcomeSkipped means the article was recognized as already ingested
	// and nothing was written.
	OutcomeSkipped
)

// ArticleContext carries one article through a strategy.
type ArticleContext struct {
	// Filename is the article's name inside the batch.
	Filename string
	// Content is the full markdown document.
	Content string
	// SourceURL is the extracted original URL; nil disables dedup.
	SourceURL *string
	// BatchSource names the batch directory the article came from.
	BatchSource string
	// UserID owns the resulting rows.
	UserID int64
	// ProductsJSON is the user's serialized product portfolio, handed to
	// the analyzer for relevance scoring.
	ProductsJSON string
}

// Strategy analyzes and persists one article of its category. A strategy
// decides for itself whether an article is a duplicate; the orchestrator
// only counts the outcome.
type Strategy interface {
	Category() domain.Category
	Process(ctx context.Context, article *ArticleContext) (Outcome, error)
}
