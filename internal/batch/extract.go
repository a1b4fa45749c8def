package batch

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"
)

// Defaults used when a markdown article is missing a field.
const (
	DefaultTitle  = "未知标题"
	DefaultSource = "未知来源"
)

// appendixLinkWindow is how many lines after an appendix heading we look
// for a markdown link before giving up.
const appendixLinkWindow = 5

var (
	markdownLinkPattern = regexp.MustCompile(`\[[^\]]*\]\((https?://[^)\s]+)\)`)
	bareURLPattern      = regexp.MustCompile(`https?://[^\s\])>]+`)
)

// ExtractSourceURL finds the original article URL in markdown content.
// It tries three strategies in order: an explicit source-link line, a
// markdown link shortly after an appendix heading, and finally the first
// bare URL anywhere in the document. Returns nil when none match; a nil
// URL is valid and simply disables dedup for the article.
func ExtractSourceURL(content string) *string {
	lines := strings.Split(content, "\n")

	for _, line := range lines {
		if idx := markerIndex(line, "原文链接:", "原文链接：", "sourceUrl:"); idx >= 0 {
			if u := bareURLPattern.FindString(line[idx:]); u != "" {
				return &u
			}
		}
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "## 附") && !strings.HasPrefix(trimmed, "## 参考") {
			continue
		}
		end := i + 1 + appendixLinkWindow
		if end > len(lines) {
			end = len(lines)
		}
		for _, candidate := range lines[i+1 : end] {
			if m := markdownLinkPattern.FindStringSubmatch(candidate); m != nil {
				return &m[1]
			}
		}
	}

	if u := bareURLPattern.FindString(content); u != "" {
		return &u
	}
	return nil
}

// ExtractTitle returns the first level-one heading of the document.
func ExtractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		}
	}
	return DefaultTitle
}

// ExtractSource returns the publication source named in the document.
func ExtractSource(content string) string {
	if v := extractMarkerValue(content, "来源:", "来源：", "source:"); v != "" {
		return v
	}
	return DefaultSource
}

// ExtractPublishTime returns the publish time named in the document, or
// the empty string when absent.
func ExtractPublishTime(content string) string {
	return extractMarkerValue(content, "发布时间:", "发布时间：", "publishTime:")
}

// extractMarkerValue scans for the first line containing one of the
// markers and returns the trimmed text after it.
func extractMarkerValue(content string, markers ...string) string {
	for _, line := range strings.Split(content, "\n") {
		for _, marker := range markers {
			if idx := strings.Index(line, marker); idx >= 0 {
				value := strings.TrimSpace(line[idx+len(marker):])
				value = strings.Trim(value, "*_ ")
				if value != "" {
					return value
				}
			}
		}
	}
	return ""
}

// markerIndex returns the index just past the first matching marker in
// the line, or -1 when no marker is present.
func markerIndex(line string, markers ...string) int {
	for _, marker := range markers {
		if idx := strings.Index(line, marker); idx >= 0 {
			return idx + len(marker)
		}
	}
	return -1
}

// DedupKey computes a stable fingerprint for a source URL. The URL is
// canonicalized (lowercased scheme and host, fragment dropped, trailing
// slash trimmed) so cosmetic variants of the same address collide.
func DedupKey(rawURL string) string {
	canonical := rawURL
	if parsed, err := url.Parse(strings.TrimSpace(rawURL)); err == nil {
		parsed.Scheme = strings.ToLower(parsed.Scheme)
		parsed.Host = strings.ToLower(parsed.Host)
		parsed.Fragment = ""
		canonical = strings.TrimSuffix(parsed.String(), "/")
	}

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
