// Package batch reads crawl batch directories written by the proxy
// service: the metadata manifest plus the markdown article files it lists.
package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestFilename is the manifest the proxy writes into every batch.
const ManifestFilename = "metadata.json"

// Manifest describes the contents of one crawl batch. Source names the
// crawled site at the batch level and applies to every article listed.
type Manifest struct {
	Source       string         `json:"source"`
	ArticleCount int            `json:"articleCount"`
	Categories   map[string]int `json:"categories"`
	Articles     []ArticleEntry `json:"articles"`
}

// ArticleEntry is one article listed in the manifest. URL is the page
// the article was crawled from; the proxy omits it when unknown.
type ArticleEntry struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Category string `json:"category"`
	Title    string `json:"title"`
}

// Article is one article resolved on disk.
type Article struct {
	Filename string
	URL      string
	Category string
	Path     string
}

// ReadManifest loads and parses the metadata manifest of a batch.
// A missing or malformed manifest yields ErrManifestUnreadable.
func ReadManifest(batchPath string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(batchPath, ManifestFilename))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrManifestUnreadable, err)
	}

	var manifest Manifest
	if unmarshalErr := json.Unmarshal(data, &manifest); unmarshalErr != nil {
		return nil, fmt.Errorf("%w: %s", ErrManifestUnreadable, unmarshalErr)
	}

	return &manifest, nil
}

// ListArticles resolves the manifest entries of one category against the
// batch directory, in manifest order. Entries whose file is missing on
// disk are dropped here and never reach the analysis pipeline.
func ListArticles(batchPath string, manifest *Manifest, category string) []Article {
	articles := make([]Article, 0, len(manifest.Articles))
	for _, entry := range manifest.Articles {
		if entry.Category != category {
			continue
		}

		path := filepath.Join(batchPath, entry.Filename)
		if _, err := os.Stat(path); err != nil {
			continue
		}

		articles = append(articles, Article{
			Filename: entry.Filename,
			URL:      entry.URL,
			Category: entry.Category,
			Path:     path,
		})
	}
	return articles
}

// CategoryCounts tallies the listed articles per category. Manifests
// that carry no article list fall back to their precomputed categories
// map.
func (m *Manifest) CategoryCounts() map[string]int {
	if len(m.Articles) == 0 {
		return m.Categories
	}
	counts := make(map[string]int, len(m.Categories))
	for _, entry := range m.Articles {
		counts[entry.Category]++
	}
	return counts
}

// ResolvePath anchors a relative batch path at the given base directory.
// The proxy reports paths relative to its own working dir, e.g.
// "crawl_files/batch_20250614_093000".
func ResolvePath(baseDir, batchPath string) string {
	if filepath.IsAbs(batchPath) || baseDir == "" {
		return batchPath
	}
	return filepath.Join(baseDir, filepath.Base(batchPath))
}

// ReadArticle loads the markdown content of one article.
func ReadArticle(article Article) (string, error) {
	data, err := os.ReadFile(article.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read article %s: %w", article.Filename, err)
	}
	return string(data), nil
}
