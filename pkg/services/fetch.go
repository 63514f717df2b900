package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"yt-m3u8-go/pkg/httpclient"
	"yt-m3u8-go/pkg/interfaces"
)

// maxManifestSize bounds how much of an origin manifest is read into
// memory. Live manifests with large windows stay well under this.
const maxManifestSize = 10 << 20

// fetchManifest retrieves an origin manifest as text. The caller's
// context is bounded by timeout so a slow origin cannot hold a playlist
// request open indefinitely.
func fetchManifest(ctx context.Context, doer interfaces.HTTPDoer, manifestURL string, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := openOrigin(ctx, doer, manifestURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: origin returned %d", ErrUpstreamFetch, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestSize))
	if err != nil {
		return "", fmt.Errorf("%w: reading manifest: %v", ErrUpstreamFetch, err)
	}
	return string(data), nil
}

// openOrigin issues a GET with the standard origin headers applied.
func openOrigin(ctx context.Context, doer interfaces.HTTPDoer, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	httpclient.ApplyOriginHeaders(req)
	return doer.Do(req)
}

// mediaContentType picks a MIME type for a media URL from its path
// extension, falling back to the origin's header and then a generic
// binary type.
func mediaContentType(target, fromOrigin string) string {
	p := target
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".ts":
		return "video/MP2T"
	case ".mp4", ".m4s", ".m4v":
		return "video/mp4"
	case ".m4a":
		return "audio/mp4"
	case ".aac":
		return "audio/aac"
	case ".m3u8":
		return "application/vnd.apple.mpegurl"
	case ".webm":
		return "video/webm"
	case ".vtt":
		return "text/vtt"
	}
	if fromOrigin != "" {
		return fromOrigin
	}
	return "application/octet-stream"
}
