package domain

import (
	"strings"
	"time"
)

// Transport selects how a crawl is dispatched.
type Transport string

const (
	// TransportLegacy enqueues the task on the message queue for the
	// legacy crawler workers.
	TransportLegacy Transport = "legacy"
	// TransportProxy calls the crawl proxy service over HTTP.
	TransportProxy Transport = "proxy"
)

// CrawlConfig describes one crawl target: where to crawl, how deep, on
// what schedule, and over which transport.
type CrawlConfig struct {
	ID              int64     `db:"config_id" json:"configId"`
	TargetName      string    `db:"target_name" json:"targetName"`
	SourceURLs      string    `db:"source_urls" json:"sourceUrls"`
	CrawlDepth      int       `db:"crawl_depth" json:"crawlDepth"`
	MaxArticles     int       `db:"max_articles" json:"maxArticles"`
	Transport       Transport `db:"transport" json:"transport"`
	ResultPath      *string   `db:"result_path" json:"resultPath,omitempty"`
	TriggerSchedule *string   `db:"trigger_schedule" json:"triggerSchedule,omitempty"`
	IsActive        bool      `db:"is_active" json:"isActive"`
	IsDeleted       bool      `db:"is_deleted" json:"-"`
	CreateTime      time.Time `db:"create_time" json:"createTime"`
	UpdateTime      time.Time `db:"update_time" json:"updateTime"`
}

// SourceURLList splits the stored source URLs into individual entries.
// URLs are stored one per line; blank lines and surrounding whitespace
// are discarded.
func (c *CrawlConfig) SourceURLList() []string {
	if c.SourceURLs == "" {
		return nil
	}

	lines := strings.Split(c.SourceURLs, "\n")
	urls := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		urls = append(urls, line)
	}
	return urls
}

// Validate reports whether the config can be crawled.
func (c *CrawlConfig) Validate() error {
	if len(c.SourceURLList()) == 0 {
		return ErrInvalidConfig
	}
	return nil
}
