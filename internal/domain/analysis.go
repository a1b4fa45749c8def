package domain

import "time"

// Category identifies which analysis pipeline an article belongs to.
type Category string

const (
	CategoryPolicy     Category = "policy"
	CategoryCompetitor Category = "competitor"
)

// PolicyInfo is one tracked regulatory policy extracted from a crawled
// article. Rows are append-only; DedupKey prevents re-ingesting the same
// source URL across batches.
type PolicyInfo struct {
	ID          int64      `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	PolicyType  string     `db:"policy_type" json:"policyType"`
	Source      string     `db:"source" json:"source"`
	SourceURL   *string    `db:"source_url" json:"sourceUrl,omitempty"`
	DedupKey    *string    `db:"dedup_key" json:"-"`
	PublishTime string     `db:"publish_time" json:"publishTime"`
	Importance  string     `db:"importance" json:"importance"`
	Relevance   string     `db:"relevance" json:"relevance"`
	Areas       StringList `db:"areas" json:"areas"`
	Summary     string     `db:"summary" json:"summary"`
	BatchSource string     `db:"batch_source" json:"batchSource"`
	UserID      int64      `db:"user_id" json:"userId"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// PolicyAnalysis is one analysis pass over a policy. A policy accumulates
// one row per run.
type PolicyAnalysis struct {
	ID             int64      `db:"id" json:"id"`
	PolicyID       int64      `db:"policy_id" json:"policyId"`
	Importance     string     `db:"importance" json:"importance"`
	Relevance      string     `db:"relevance" json:"relevance"`
	Summary        string     `db:"summary" json:"summary"`
	KeyPoints      StringList `db:"key_points" json:"keyPoints"`
	ImpactAnalysis string     `db:"impact_analysis" json:"impactAnalysis"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
}

// PolicySuggestion is one actionable recommendation attached to a policy.
type PolicySuggestion struct {
	ID         int64     `db:"id" json:"id"`
	PolicyID   int64     `db:"policy_id" json:"policyId"`
	Suggestion string    `db:"suggestion" json:"suggestion"`
	Reason     string    `db:"reason" json:"reason"`
	SortOrder  int       `db:"sort_order" json:"sortOrder"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// CompetitorInfo is one tracked competitor. Unlike policies, competitor
// rows are updated in place when new activity for the same source arrives.
type CompetitorInfo struct {
	ID           int64      `db:"id" json:"id"`
	Title        string     `db:"title" json:"title"`
	CompanyName  string     `db:"company_name" json:"companyName"`
	Type         string     `db:"type" json:"type"`
	Importance   string     `db:"importance" json:"importance"`
	Relevance    string     `db:"relevance" json:"relevance"`
	KeyPoints    StringList `db:"key_points" json:"keyPoints"`
	CaptureTime  time.Time  `db:"capture_time" json:"captureTime"`
	Sources      StringList `db:"sources" json:"sources"`
	Tags         StringList `db:"tags" json:"tags"`
	Content      string     `db:"content" json:"content"`
	Summary      string     `db:"summary" json:"summary"`
	MarketImpact string     `db:"market_impact" json:"marketImpact"`
	RelatedInfo  string     `db:"related_info" json:"relatedInfo"`
	BatchSource  string     `db:"batch_source" json:"batchSource"`
	UserID       int64      `db:"user_id" json:"userId"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

// CompetitorAnalysis is the current analysis of a competitor. A competitor
// holds a single row at sort order 1, replaced on each run.
type CompetitorAnalysis struct {
	ID                  int64          `db:"id" json:"id"`
	CompetitorID        int64          `db:"competitor_id" json:"competitorId"`
	Importance          string         `db:"importance" json:"importance"`
	Relevance           string         `db:"relevance" json:"relevance"`
	KeyPoints           StringList     `db:"key_points" json:"keyPoints"`
	MarketImpact        string         `db:"market_impact" json:"marketImpact"`
	CompetitiveAnalysis string         `db:"competitive_analysis" json:"competitiveAnalysis"`
	Content             string         `db:"content" json:"content"`
	OurSuggestions      SuggestionList `db:"our_suggestions" json:"ourSuggestions"`
	SortOrder           int            `db:"sort_order" json:"sortOrder"`
	CreatedAt           time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time      `db:"updated_at" json:"updatedAt"`
}

// UserProduct is one product in a user's portfolio. The product list is
// serialized and handed to the analyzer so results are scored against
// what the user actually sells.
type UserProduct struct {
	ID       int64  `db:"id" json:"id"`
	UserID   int64  `db:"user_id" json:"-"`
	Name     string `db:"name" json:"name"`
	Type     string `db:"type" json:"type"`
	Features string `db:"features" json:"features"`
}

// Suggestion is one recommendation with its rationale, as produced by the
// analyzer and stored on analyses.
type Suggestion struct {
	Suggestion string `json:"suggestion"`
	Reason     string `json:"reason"`
}

// PolicyAnalysisResult is the analyzer's verdict on one policy article.
type PolicyAnalysisResult struct {
	PolicyType     string       `json:"policyType"`
	Importance     string       `json:"importance"`
	Relevance      string       `json:"relevance"`
	Areas          []string     `json:"areas"`
	Summary        string       `json:"summary"`
	KeyPoints      []string     `json:"keyPoints"`
	ImpactAnalysis string       `json:"impactAnalysis"`
	Suggestions    []Suggestion `json:"suggestions"`
}

// CompetitorAnalysisResult is the analyzer's verdict on one competitor
// article.
type CompetitorAnalysisResult struct {
	Company             string       `json:"company"`
	Type                string       `json:"type"`
	Importance          string       `json:"importance"`
	Relevance           string       `json:"relevance"`
	Tags                []string     `json:"tags"`
	Summary             string       `json:"summary"`
	KeyPoints           []string     `json:"keyPoints"`
	MarketImpact        string       `json:"marketImpact"`
	CompetitiveAnalysis string       `json:"competitiveAnalysis"`
	OurSuggestions      []Suggestion `json:"ourSuggestions"`
}
