// Package ytdlp is the extraction boundary: it shells out to yt-dlp and
// converts its loosely-typed JSON dump into the typed domain model once,
// so nothing downstream handles raw metadata maps.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"yt-m3u8-go/pkg/httpclient"
	"yt-m3u8-go/pkg/interfaces"
	"yt-m3u8-go/pkg/logging"
	"yt-m3u8-go/pkg/types"
)

// Client runs yt-dlp metadata extractions.
type Client struct {
	path    string
	timeout time.Duration
	proxy   string
	cookies interfaces.CookieStore
	log     *logging.Logger
}

// New creates a yt-dlp client. cookies may be nil when no credential
// store is configured.
func New(path string, timeout time.Duration, proxy string, cookies interfaces.CookieStore, log *logging.Logger) *Client {
	return &Client{
		path:    path,
		timeout: timeout,
		proxy:   proxy,
		cookies: cookies,
		log:     log.WithComponent("ytdlp"),
	}
}

// Extract runs a fresh metadata extraction for the given video URL.
// Results are never cached: every returned URL is session-signed.
func (c *Client) Extract(ctx context.Context, videoURL string) (*types.VideoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := c.buildArgs(videoURL)
	cmd := exec.CommandContext(ctx, c.path, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	c.log.Debug("yt-dlp finished",
		"url", videoURL,
		"duration_ms", time.Since(start).Milliseconds(),
		"stdout_bytes", stdout.Len(),
	)

	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("extraction timed out: %w", ctx.Err())
		}
		cerr := classifyError(stderr.String())
		c.log.Warn("extraction failed", "url", videoURL, "error", cerr)
		return nil, cerr
	}

	var raw rawInfo
	if err := json.Unmarshal(stdout.Bytes(), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse extraction output: %w", err)
	}

	return raw.normalize(), nil
}

// Version reports the yt-dlp binary version.
func (c *Client) Version(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := exec.CommandContext(ctx, c.path, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("yt-dlp version check failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// buildArgs assembles the extraction command line. The spoofed browser
// headers match the ones used for origin fetches so signed URLs stay
// valid when the proxy consumes them.
func (c *Client) buildArgs(videoURL string) []string {
	args := []string{
		"-J",
		"--no-warnings",
		"--no-playlist",
		"--extractor-args", "youtube:player_client=ios,android,web",
		"--user-agent", httpclient.OriginHeaders["User-Agent"],
		"--add-header", "Accept-Language:" + httpclient.OriginHeaders["Accept-Language"],
		"--add-header", "Origin:" + httpclient.OriginHeaders["Origin"],
		"--add-header", "Referer:" + httpclient.OriginHeaders["Referer"],
	}
	if c.cookies != nil {
		if path := c.cookies.Path(); path != "" {
			args = append(args, "--cookies", path)
		}
	}
	if c.proxy != "" {
		args = append(args, "--proxy", c.proxy)
	}
	return append(args, videoURL)
}

// rawInfo mirrors the subset of the yt-dlp JSON dump the service consumes.
type rawInfo struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Description    string      `json:"description"`
	Duration       float64     `json:"duration"`
	IsLive         bool        `json:"is_live"`
	LiveStatus     string      `json:"live_status"`
	Thumbnail      string      `json:"thumbnail"`
	Uploader       string      `json:"uploader"`
	UploadDate     string      `json:"upload_date"`
	ViewCount      int64       `json:"view_count"`
	LikeCount      int64       `json:"like_count"`
	ManifestURL    string      `json:"manifest_url"`
	HLSManifestURL string      `json:"hls_manifest_url"`
	Formats        []rawFormat `json:"formats"`
}

type rawFormat struct {
	FormatID string  `json:"format_id"`
	URL      string  `json:"url"`
	Height   int     `json:"height"`
	Width    int     `json:"width"`
	FPS      float64 `json:"fps"`
	TBR      float64 `json:"tbr"`
	VCodec   string  `json:"vcodec"`
	ACodec   string  `json:"acodec"`
	Ext      string  `json:"ext"`
	Protocol string  `json:"protocol"`
}

// normalize validates and converts the raw dump into the typed model.
func (r *rawInfo) normalize() *types.VideoInfo {
	info := &types.VideoInfo{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Uploader:    r.Uploader,
		UploadDate:  r.UploadDate,
		Thumbnail:   r.Thumbnail,
		Duration:    r.Duration,
		ViewCount:   r.ViewCount,
		LikeCount:   r.LikeCount,
		LiveStatus:  normalizeLiveStatus(r.IsLive, r.LiveStatus),
		ManifestURL: r.ManifestURL,
	}
	if info.ManifestURL == "" {
		info.ManifestURL = r.HLSManifestURL
	}

	info.Variants = make([]types.Variant, 0, len(r.Formats))
	for _, f := range r.Formats {
		info.Variants = append(info.Variants, types.Variant{
			ID:       f.FormatID,
			Height:   f.Height,
			Width:    f.Width,
			FPS:      f.FPS,
			TBR:      f.TBR,
			VCodec:   f.VCodec,
			ACodec:   f.ACodec,
			Ext:      f.Ext,
			Protocol: types.ParseProtocol(f.Protocol),
			URL:      f.URL,
		})
	}

	return info
}

func normalizeLiveStatus(isLive bool, status string) types.LiveStatus {
	switch status {
	case "is_live":
		return types.LiveStatusLive
	case "is_upcoming":
		return types.LiveStatusUpcoming
	}
	if isLive {
		return types.LiveStatusLive
	}
	return types.LiveStatusVOD
}

var _ interfaces.Extractor = (*Client)(nil)
