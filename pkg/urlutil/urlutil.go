// Package urlutil provides URL manipulation utilities that preserve original encoding.
package urlutil

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// ResolveURL resolves a potentially relative URL against a base URL.
// Uses string manipulation to preserve original URL encoding.
// Go's url.ResolveReference re-encodes special characters, which breaks
// origin URLs whose path segments carry signature material.
func ResolveURL(urlStr string, baseURL string) string {
	if strings.HasPrefix(urlStr, "http://") || strings.HasPrefix(urlStr, "https://") {
		return urlStr
	}

	base := GetBaseDirectory(baseURL)

	if strings.HasPrefix(urlStr, "/") {
		parsed, err := url.Parse(baseURL)
		if err != nil {
			return base + urlStr
		}
		return parsed.Scheme + "://" + parsed.Host + urlStr
	}

	for strings.HasPrefix(urlStr, "../") {
		urlStr = urlStr[3:]
		base = strings.TrimSuffix(base, "/")
		if lastSlash := strings.LastIndex(base, "/"); lastSlash > 0 {
			base = base[:lastSlash+1]
		}
	}

	return base + urlStr
}

// seqRe matches the sequence-number path segment used by segmented origins,
// e.g. .../sq/482/... The number indexes one segment of a live or
// post-live DVR stream.
var seqRe = regexp.MustCompile(`/sq/(\d+)(?:/|$)`)

// SequenceNumber extracts the segment sequence number from a URL path.
// Returns false when the URL carries no /sq/<n>/ segment.
func SequenceNumber(urlStr string) (int64, bool) {
	m := seqRe.FindStringSubmatch(urlStr)
	if m == nil {
		return 0, false
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// WithSequence replaces the /sq/<n>/ segment of a URL with the given
// sequence number. Used when a manifest URL embeds a stale sequence number
// that must be swapped for the one actually requested. Returns false when
// the URL has no sequence segment to replace.
func WithSequence(urlStr string, seq int64) (string, bool) {
	if !seqRe.MatchString(urlStr) {
		return urlStr, false
	}
	out := seqRe.ReplaceAllStringFunc(urlStr, func(m string) string {
		if strings.HasSuffix(m, "/") {
			return "/sq/" + strconv.FormatInt(seq, 10) + "/"
		}
		return "/sq/" + strconv.FormatInt(seq, 10)
	})
	return out, true
}

// GetBaseDirectory returns the directory portion of a URL (without the
// filename), preserving original encoding.
func GetBaseDirectory(urlStr string) string {
	if idx := strings.Index(urlStr, "?"); idx > 0 {
		urlStr = urlStr[:idx]
	}
	if lastSlash := strings.LastIndex(urlStr, "/"); lastSlash > 0 {
		return urlStr[:lastSlash+1]
	}
	return urlStr
}
