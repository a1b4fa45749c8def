package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeBatch(t *testing.T, manifest string, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ManifestFilename), []byte(manifest), 0o644))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestReadManifest(t *testing.T) {
	dir := writeBatch(t, `{
		"source": "东方财富",
		"articleCount": 3,
		"categories": {"policy": 2, "competitor": 1},
		"articles": [
			{"filename": "a.md", "url": "https://example.com/a", "category": "policy", "title": "甲"},
			{"filename": "b.md", "category": "policy", "title": "乙"},
			{"filename": "c.md", "category": "competitor", "title": "丙"}
		]
	}`, nil)

	manifest, err := ReadManifest(dir)
	require.NoError(t, err)
	require.Equal(t, "东方财富", manifest.Source)
	require.Equal(t, 3, manifest.ArticleCount)
	require.Equal(t, 2, manifest.Categories["policy"])
	require.Len(t, manifest.Articles, 3)
	require.Equal(t, "https://example.com/a", manifest.Articles[0].URL)
	require.Empty(t, manifest.Articles[1].URL)
}

func TestCategoryCountsTalliesArticles(t *testing.T) {
	// A stale categories map loses to the actual article list.
	manifest := &Manifest{
		Categories: map[string]int{"policy": 9},
		Articles: []ArticleEntry{
			{Filename: "a.md", Category: "policy"},
			{Filename: "b.md", Category: "policy"},
			{Filename: "c.md", Category: "competitor"},
		},
	}

	counts := manifest.CategoryCounts()
	require.Equal(t, map[string]int{"policy": 2, "competitor": 1}, counts)
}

func TestCategoryCountsFallsBackToMap(t *testing.T) {
	manifest := &Manifest{Categories: map[string]int{"policy": 4}}

	require.Equal(t, map[string]int{"policy": 4}, manifest.CategoryCounts())
}

func TestReadManifestMissing(t *testing.T) {
	_, err := ReadManifest(t.TempDir())
	require.ErrorIs(t, err, ErrManifestUnreadable)
}

func TestReadManifestMalformed(t *testing.T) {
	dir := writeBatch(t, "{not json", nil)

	_, err := ReadManifest(dir)
	require.ErrorIs(t, err, ErrManifestUnreadable)
}

func TestListArticlesFiltersAndSkipsMissing(t *testing.T) {
	dir := writeBatch(t, `{
		"articleCount": 3,
		"articles": [
			{"filename": "a.md", "url": "https://example.com/a", "category": "policy"},
			{"filename": "missing.md", "category": "policy"},
			{"filename": "c.md", "category": "competitor"}
		]
	}`, map[string]string{
		"a.md": "# 甲",
		"c.md": "# 丙",
	})

	manifest, err := ReadManifest(dir)
	require.NoError(t, err)

	policies := ListArticles(dir, manifest, "policy")
	require.Len(t, policies, 1, "missing files are dropped at listing")
	require.Equal(t, "a.md", policies[0].Filename)
	require.Equal(t, "https://example.com/a", policies[0].URL)

	competitors := ListArticles(dir, manifest, "competitor")
	require.Len(t, competitors, 1)

	content, err := ReadArticle(policies[0])
	require.NoError(t, err)
	require.Equal(t, "# 甲", content)
}

func TestResolvePath(t *testing.T) {
	require.Equal(t, "/data/crawls/batch_x", ResolvePath("/data/crawls", "crawl_files/batch_x"))
	require.Equal(t, "/abs/batch_x", ResolvePath("/data/crawls", "/abs/batch_x"))
	require.Equal(t, "crawl_files/batch_x", ResolvePath("", "crawl_files/batch_x"))
}

func TestListArticlesPreservesManifestOrder(t *testing.T) {
	dir := writeBatch(t, `{
		"articles": [
			{"filename": "z.md", "category": "policy"},
			{"filename": "a.md", "category": "policy"},
			{"filename": "m.md", "category": "policy"}
		]
	}`, map[string]string{
		"z.md": "z", "a.md": "a", "m.md": "m",
	})

	manifest, err := ReadManifest(dir)
	require.NoError(t, err)

	articles := ListArticles(dir, manifest, "policy")
	require.Len(t, articles, 3)
	require.Equal(t, "z.md", articles[0].Filename)
	require.Equal(t, "a.md", articles[1].Filename)
	require.Equal(t, "m.md", articles[2].Filename)
}
