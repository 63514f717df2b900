// Package services implements the request-scoped operations behind the
// HTTP surface: playlist synthesis, sub-manifest rewriting, segment
// reconstruction, and the reverse proxy relay.
package services

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"yt-m3u8-go/pkg/types"
)

// Links builds the service-internal URLs embedded in playlists and
// rewritten manifests. Origin URLs never appear in client-facing output
// except wrapped in a /proxy link.
type Links struct {
	base   string
	apiKey string
}

// NewLinks creates a link builder for the service's public base URL.
// When apiKey is set every link carries it as a query parameter: a
// player following an embedded link cannot attach headers, so the key
// must travel in the URL for the link to pass the auth gate.
func NewLinks(baseURL, apiKey string) Links {
	return Links{base: strings.TrimRight(baseURL, "/"), apiKey: apiKey}
}

func (l Links) withKey(u string) string {
	if l.apiKey == "" {
		return u
	}
	return u + "&api_key=" + url.QueryEscape(l.apiKey)
}

// Proxy wraps an origin URL in a generic relay link.
func (l Links) Proxy(target string) string {
	return l.withKey(l.base + "/proxy?url=" + url.QueryEscape(target))
}

// Playlist links the playlist endpoint for a video at a given quality.
func (l Links) Playlist(videoRef string, q types.Quality) string {
	return l.withKey(fmt.Sprintf("%s/api/m3u8?url=%s&quality=%s", l.base, url.QueryEscape(videoRef), q))
}

// VariantPlaylist links the sub-resource endpoint for one variant. The
// endpoint re-extracts on every fetch, so the link never goes stale.
func (l Links) VariantPlaylist(videoRef, variantID string) string {
	return l.withKey(fmt.Sprintf("%s/api/m3u8/variant?url=%s&id=%s",
		l.base, url.QueryEscape(videoRef), url.QueryEscape(variantID)))
}

// Segment links the reconstruction endpoint for one sequence number. The
// tuple (video, variant, sequence) stands in for an origin segment URL
// that would expire before use if stored.
func (l Links) Segment(videoRef, variantID string, seq int64) string {
	return l.withKey(fmt.Sprintf("%s/api/segment?url=%s&id=%s&sq=%d",
		l.base, url.QueryEscape(videoRef), url.QueryEscape(variantID), seq))
}

// videoIDRe matches a bare 11-character video identifier.
var videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// NormalizeReference turns a video reference, a watch URL or a bare
// video ID, into a canonical URL for the extractor.
func NormalizeReference(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidReference)
	}
	if videoIDRe.MatchString(ref) {
		return "https://www.youtube.com/watch?v=" + ref, nil
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidReference, ref)
	}
	return ref, nil
}
