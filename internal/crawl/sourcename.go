package crawl

import (
	"net/url"
	"strings"
)

// Fallback source names for URLs we cannot derive anything from.
const (
	unknownSource     = "unknown"
	malformedSource   = "unknown_source"
	maxSourceSegments = 2
)

// tldLabels are host labels treated as TLD noise when deriving a source
// name. Covers the registries seen in practice across our crawl targets.
var tldLabels = map[string]struct{}{
	"com": {}, "cn": {}, "net": {}, "org": {}, "gov": {}, "edu": {},
	"io": {}, "co": {}, "uk": {}, "us": {}, "jp": {}, "kr": {},
	"de": {}, "fr": {}, "info": {}, "biz": {},
}

// SourceName derives a short stable identifier from a crawl target URL,
// used to name the batch directory and label stored articles. The host is
// split on dots; "www" and TLD labels are dropped and the first two
// surviving labels are joined with an underscore.
//
// "https://bank.eastmoney.com/list" becomes "bank_eastmoney".
func SourceName(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return malformedSource
	}

	host := parsed.Hostname()
	if host == "" {
		// Scheme-less input parses with an empty host.
		if fields := strings.FieldsFunc(rawURL, func(r rune) bool { return r == '/' || r == '?' }); len(fields) > 0 {
			host = fields[0]
		}
	}
	if host == "" {
		return malformedSource
	}

	labels := strings.Split(strings.ToLower(host), ".")
	kept := make([]string, 0, maxSourceSegments)
	for _, label := range labels {
		if label == "" || label == "www" {
			continue
		}
		if _, isTLD := tldLabels[label]; isTLD {
			continue
		}
		kept = append(kept, label)
		if len(kept) == maxSourceSegments {
			break
		}
	}

	if len(kept) == 0 {
		return unknownSource
	}
	return strings.Join(kept, "_")
}
