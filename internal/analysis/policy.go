package analysis

import (
	"context"
	"fmt"

	"github.com/jonesrussell/regradar/internal/batch"
	"github.com/jonesrussell/regradar/internal/domain"
	"github.com/jonesrussell/regradar/internal/logger"
)

// PolicyAnalyzer is the proxy call the policy strategy depends on.
type PolicyAnalyzer interface {
	AnalyzePolicy(ctx context.Context, content, productsJSON string) (*domain.PolicyAnalysisResult, error)
}

// PolicyStore is the subset of the policy repository the strategy needs.
type PolicyStore interface {
	ExistsByDedupKey(ctx context.Context, userID int64, dedupKey string) (bool, error)
	CreatePolicy(ctx context.Context, policy *domain.PolicyInfo) error
	CreateAnalysis(ctx context.Context, analysis *domain.PolicyAnalysis) error
	CreateSuggestions(ctx context.Context, suggestions []*domain.PolicySuggestion) error
}

// PolicyStrategy ingests policy articles. Policies are append-only: a
// known source URL skips the article entirely, an unknown one inserts a
// policy row plus fresh analysis and suggestion rows.
type PolicyStrategy struct {
	analyzer PolicyAnalyzer
	policies PolicyStore
	logger   logger.Interface
}

// NewPolicyStrategy creates the policy persistence strategy.
func NewPolicyStrategy(analyzer PolicyAnalyzer, policies PolicyStore, log logger.Interface) *PolicyStrategy {
	return &PolicyStrategy{
		analyzer: analyzer,
		policies: policies,
		logger:   log.WithComponent("analysis.policy"),
	}
}

// Category implements Strategy.
func (s *PolicyStrategy) Category() domain.Category {
	return domain.CategoryPolicy
}

// Process implements Strategy. The dedup check runs before the analyzer
// call so duplicates never cost an AI round trip.
func (s *PolicyStrategy) Process(ctx context.Context, article *ArticleContext) (Outcome, error) {
	var dedupKey *string
	if article.SourceURL != nil {
		key := batch.DedupKey(*article.SourceURL)
		exists, err := s.policies.ExistsByDedupKey(ctx, article.UserID, key)
		if err != nil {
			return OutcomeSkipped, err
		}
		if exists {
			s.logger.Debug("policy already ingested, skipping",
				"filename", article.Filename,
				"source_url", *article.SourceURL)
			return OutcomeSkipped, nil
		}
		dedupKey = &key
	}

	result, err := s.analyzer.AnalyzePolicy(ctx, article.Content, article.ProductsJSON)
	if err != nil {
		return OutcomeSkipped, fmt.Errorf("policy analysis failed for %s: %w", article.Filename, err)
	}

	policy := &domain.PolicyInfo{
		Title:       batch.ExtractTitle(article.Content),
		PolicyType:  result.PolicyType,
		Source:      batch.ExtractSource(article.Content),
		SourceURL:   article.SourceURL,
		DedupKey:    dedupKey,
		PublishTime: batch.ExtractPublishTime(article.Content),
		Importance:  result.Importance,
		Relevance:   result.Relevance,
		Areas:       result.Areas,
		Summary:     result.Summary,
		BatchSource: article.BatchSource,
		UserID:      article.UserID,
	}

	if createErr := s.policies.CreatePolicy(ctx, policy); createErr != nil {
		return OutcomeSkipped, createErr
	}

	policyAnalysis := &domain.PolicyAnalysis{
		PolicyID:       policy.ID,
		Importance:     result.Importance,
		Relevance:      result.Relevance,
		Summary:        result.Summary,
		KeyPoints:      result.KeyPoints,
		ImpactAnalysis: result.ImpactAnalysis,
	}
	if analysisErr := s.policies.CreateAnalysis(ctx, policyAnalysis); analysisErr != nil {
		return OutcomeSkipped, analysisErr
	}

	suggestions := make([]*domain.PolicySuggestion, 0, len(result.Suggestions))
	for i, suggestion := range result.Suggestions {
		suggestions = append(suggestions, &domain.PolicySuggestion{
			PolicyID:   policy.ID,
			Suggestion: suggestion.Suggestion,
			Reason:     suggestion.Reason,
			SortOrder:  i + 1,
		})
	}
	if suggestionsErr := s.policies.CreateSuggestions(ctx, suggestions); suggestionsErr != nil {
		return OutcomeSkipped, suggestionsErr
	}

	s.logger.Info("policy ingested",
		"policy_id", policy.ID,
		"title", policy.Title,
		"batch_source", article.BatchSource)

	return OutcomeSaved, nil
}
