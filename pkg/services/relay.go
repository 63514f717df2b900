package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"yt-m3u8-go/pkg/hls"
	"yt-m3u8-go/pkg/interfaces"
	"yt-m3u8-go/pkg/logging"
)

// RelayResult is the outcome of one relay fetch. Manifests are rewritten
// and returned as text; everything else streams through untouched.
type RelayResult struct {
	IsManifest    bool
	Manifest      string
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// RelayService fetches allow-listed origin resources on the client's
// behalf, recursively proxying any manifest it relays.
type RelayService struct {
	client       interfaces.HTTPDoer
	links        Links
	allowedHosts []string
	timeout      time.Duration
	log          *logging.Logger
}

// NewRelayService creates a relay service. allowedHosts are origin
// domain suffixes; any other host is refused before a byte leaves the
// process.
func NewRelayService(client interfaces.HTTPDoer, links Links, allowedHosts []string, timeout time.Duration, log *logging.Logger) *RelayService {
	return &RelayService{
		client:       client,
		links:        links,
		allowedHosts: allowedHosts,
		timeout:      timeout,
		log:          log.WithComponent("relay"),
	}
}

// Relay fetches the target URL with origin headers applied. Manifest
// responses are rewritten so nested URLs keep flowing through the
// service; binary responses are returned as a stream.
func (s *RelayService) Relay(ctx context.Context, target string) (*RelayResult, error) {
	if err := s.checkHost(target); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	resp, err := openOrigin(ctx, s.client, target)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: origin returned %d", ErrUpstreamFetch, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if isManifestResponse(target, contentType) {
		defer cancel()
		defer resp.Body.Close()
		data, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestSize))
		if err != nil {
			return nil, fmt.Errorf("%w: reading manifest: %v", ErrUpstreamFetch, err)
		}
		rewritten, err := hls.Rewrite(string(data), target, s.links.Proxy)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
		}
		s.log.Debug("relaying manifest", "url", target, "bytes", len(data))
		return &RelayResult{
			IsManifest:  true,
			Manifest:    rewritten,
			ContentType: "application/vnd.apple.mpegurl",
		}, nil
	}

	s.log.Debug("relaying media", "url", target, "content_type", contentType, "bytes", resp.ContentLength)
	return &RelayResult{
		Body:          &cancelingBody{ReadCloser: resp.Body, cancel: cancel},
		ContentType:   mediaContentType(target, contentType),
		ContentLength: resp.ContentLength,
	}, nil
}

// checkHost enforces the origin allow-list. Matching is on whole domain
// labels so "evilgooglevideo.com" does not pass as "googlevideo.com".
func (s *RelayService) checkHost(target string) error {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return fmt.Errorf("%w: %q", ErrInvalidReference, target)
	}
	host := strings.ToLower(u.Hostname())
	for _, allowed := range s.allowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrForbiddenHost, host)
}

// isManifestResponse classifies a relayed response as an HLS manifest.
// The URL check looks only at the final path component; query strings on
// segment URLs routinely contain ".m3u8" as a parameter value.
func isManifestResponse(target, contentType string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "mpegurl") || strings.Contains(ct, "m3u8") {
		return true
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(path.Base(u.Path)), ".m3u8")
}
