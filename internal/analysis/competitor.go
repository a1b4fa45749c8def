package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jonesrussell/regradar/internal/batch"
	"github.com/jonesrussell/regradar/internal/domain"
	"github.com/jonesrussell/regradar/internal/logger"
)

// DefaultCompany is used when the analyzer cannot name the competitor.
const DefaultCompany = "未知公司"

// CompetitorAnalyzer is the proxy call the competitor strategy depends on.
type CompetitorAnalyzer interface {
	AnalyzeCompetitor(ctx context.Context, content, productsJSON string) (*domain.CompetitorAnalysisResult, error)
}

// CompetitorStore is the subset of the competitor repository the strategy needs.
type CompetitorStore interface {
	FindBySourceURL(ctx context.Context, userID int64, sourceURL string) (*domain.CompetitorInfo, error)
	Create(ctx context.Context, competitor *domain.CompetitorInfo) error
	Update(ctx context.Context, competitor *domain.CompetitorInfo) error
	UpsertAnalysis(ctx context.Context, analysis *domain.CompetitorAnalysis) error
}

// CompetitorStrategy ingests competitor articles. Competitors are kept
// current rather than accumulated: a known source URL refreshes the
// existing row in place and replaces its single analysis, an unknown one
// creates a new competitor.
type CompetitorStrategy struct {
	analyzer    CompetitorAnalyzer
	competitors CompetitorStore
	logger      logger.Interface
}

// NewCompetitorStrategy creates the competitor persistence strategy.
func NewCompetitorStrategy(analyzer CompetitorAnalyzer, competitors CompetitorStore, log logger.Interface) *CompetitorStrategy {
	return &CompetitorStrategy{
		analyzer:    analyzer,
		competitors: competitors,
		logger:      log.WithComponent("analysis.competitor"),
	}
}

// Category implements Strategy.
func (s *CompetitorStrategy) Category() domain.Category {
	return domain.CategoryCompetitor
}

// Process implements Strategy. There is no skip path: every article
// either updates a known competitor or creates a new one.
func (s *CompetitorStrategy) Process(ctx context.Context, article *ArticleContext) (Outcome, error) {
	result, err := s.analyzer.AnalyzeCompetitor(ctx, article.Content, article.ProductsJSON)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("competitor analysis failed for %s: %w", article.Filename, err)
	}

	company := strings.TrimSpace(result.Company)
	if company == "" {
		company = DefaultCompany
	}

	competitor, err := s.resolveCompetitor(ctx, article)
	if err != nil {
		return OutcomeSkipped, err
	}

	created := competitor == nil
	if created {
		competitor = &domain.CompetitorInfo{
			Tags:   result.Tags,
			UserID: article.UserID,
		}
		if article.SourceURL != nil {
			competitor.Sources = domain.StringList{*article.SourceURL}
		}
	} else {
		competitor.Tags = mergeTags(competitor.Tags, result.Tags)
		if article.SourceURL != nil && !contains(competitor.Sources, *article.SourceURL) {
			competitor.Sources = append(competitor.Sources, *article.SourceURL)
		}
	}

	competitor.Title = batch.ExtractTitle(article.Content)
	competitor.CompanyName = company
	competitor.Type = result.Type
	competitor.Importance = result.Importance
	competitor.Relevance = result.Relevance
	competitor.KeyPoints = domain.StringList(result.KeyPoints)
	competitor.CaptureTime = time.Now()
	competitor.Content = article.Content
	competitor.Summary = result.Summary
	competitor.MarketImpact = result.MarketImpact
	competitor.RelatedInfo = result.CompetitiveAnalysis
	competitor.BatchSource = article.BatchSource

	if created {
		if createErr := s.competitors.Create(ctx, competitor); createErr != nil {
			return OutcomeSkipped, createErr
		}
	} else {
		if updateErr := s.competitors.Update(ctx, competitor); updateErr != nil {
			return OutcomeSkipped, updateErr
		}
	}

	analysis := &domain.CompetitorAnalysis{
		CompetitorID:        competitor.ID,
		Importance:          result.Importance,
		Relevance:           result.Relevance,
		KeyPoints:           domain.StringList(result.KeyPoints),
		MarketImpact:        result.MarketImpact,
		CompetitiveAnalysis: result.CompetitiveAnalysis,
		Content:             renderDigest(result),
		OurSuggestions:      domain.SuggestionList(result.OurSuggestions),
	}
	if upsertErr := s.competitors.UpsertAnalysis(ctx, analysis); upsertErr != nil {
		return OutcomeSkipped, upsertErr
	}

	s.logger.Info("competitor activity ingested",
		"competitor_id", competitor.ID,
		"company", competitor.CompanyName,
		"batch_source", article.BatchSource)

	return OutcomeSaved, nil
}

// resolveCompetitor finds the competitor already tracking this source URL,
// or nil when the article should create a new one. Articles without a URL
// always create a new row.
func (s *CompetitorStrategy) resolveCompetitor(ctx context.Context, article *ArticleContext) (*domain.CompetitorInfo, error) {
	if article.SourceURL == nil {
		return nil, nil
	}
	return s.competitors.FindBySourceURL(ctx, article.UserID, *article.SourceURL)
}

// renderDigest builds the human-readable markdown stored alongside the
// structured analysis fields.
func renderDigest(result *domain.CompetitorAnalysisResult) string {
	var b strings.Builder

	b.WriteString("## 市场影响\n\n")
	b.WriteString(result.MarketImpact)
	b.WriteString("\n\n## 竞争态势\n\n")
	b.WriteString(result.CompetitiveAnalysis)
	b.WriteString("\n\n## 应对建议\n\n")
	for _, suggestion := range result.OurSuggestions {
		b.WriteString("- ")
		b.WriteString(suggestion.Suggestion)
		if suggestion.Reason != "" {
			b.WriteString("（")
			b.WriteString(suggestion.Reason)
			b.WriteString("）")
		}
		b.WriteString("\n")
	}

	return b.String()
}

func mergeTags(existing domain.StringList, incoming []string) domain.StringList {
	merged := existing
	for _, tag := range incoming {
		if !contains(merged, tag) {
			merged = append(merged, tag)
		}
	}
	return merged
}

func contains(list domain.StringList, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
