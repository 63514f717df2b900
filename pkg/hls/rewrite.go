package hls

import (
	"bufio"
	"fmt"
	"strings"

	"yt-m3u8-go/pkg/urlutil"
)

// Rewrite routes every URI in a fetched manifest through the service.
//
// Line by line: blank lines and tags without URIs pass through verbatim;
// URI="..." attribute values (encryption-key and map tags) are resolved
// against baseURL and replaced with proxyFor(abs), still quoted; bare
// non-comment lines (sub-playlists, segments, map files) are resolved and
// replaced whole-line. Pure function over text, deterministic.
func Rewrite(manifest string, baseURL string, proxyFor func(absURL string) string) (string, error) {
	return rewriteLines(manifest, baseURL, proxyFor, func(line, abs string) string {
		return proxyFor(abs)
	})
}

// RewriteSequenced is the sequence-aware form used for live/segmented
// sources whose segment URLs are session-bound: bare lines carrying a
// /sq/<n>/ path token are replaced with segmentFor(n), never the origin
// URL itself, which would expire before the player consumes it. Bare lines
// without a recognizable sequence token pass through unchanged: only
// sequence-numbered references can be reconstructed, rewriting anything
// else would produce links the segment endpoint cannot serve.
func RewriteSequenced(manifest string, baseURL string, proxyFor func(absURL string) string, segmentFor func(seq int64) string) (string, error) {
	return rewriteLines(manifest, baseURL, proxyFor, func(line, abs string) string {
		if seq, ok := urlutil.SequenceNumber(abs); ok {
			return segmentFor(seq)
		}
		return line
	})
}

// rewriteLines scans the manifest preserving line structure; bareLine
// decides what a resolved non-tag line becomes.
func rewriteLines(manifest string, baseURL string, proxyFor func(string) string, bareLine func(line, abs string) string) (string, error) {
	var out strings.Builder
	out.Grow(len(manifest) + len(manifest)/2)

	scanner := bufio.NewScanner(strings.NewReader(manifest))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			out.WriteString(line)
		case strings.HasPrefix(trimmed, "#"):
			out.WriteString(rewriteURIAttr(line, baseURL, proxyFor))
		default:
			abs := urlutil.ResolveURL(trimmed, baseURL)
			out.WriteString(bareLine(line, abs))
		}
		out.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("scanning manifest: %w", err)
	}

	return out.String(), nil
}

// rewriteURIAttr rewrites every URI="..." attribute in tag lines such
// as #EXT-X-KEY and #EXT-X-MAP. Lines without the attribute pass
// through unchanged.
func rewriteURIAttr(line string, baseURL string, proxyFor func(string) string) string {
	var out strings.Builder
	rest := line
	for {
		start := strings.Index(rest, `URI="`)
		if start == -1 {
			break
		}
		start += len(`URI="`)
		end := strings.Index(rest[start:], `"`)
		if end == -1 {
			break
		}
		uri := rest[start : start+end]
		abs := urlutil.ResolveURL(uri, baseURL)
		out.WriteString(rest[:start])
		out.WriteString(proxyFor(abs))
		out.WriteByte('"')
		rest = rest[start+end+1:]
	}
	if out.Len() == 0 {
		return line
	}
	out.WriteString(rest)
	return out.String()
}
