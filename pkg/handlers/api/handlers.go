// Package api provides HTTP handlers for the playlist proxy API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"

	"yt-m3u8-go/pkg/appctx"
	"yt-m3u8-go/pkg/cookies"
	"yt-m3u8-go/pkg/hls"
	"yt-m3u8-go/pkg/logging"
	"yt-m3u8-go/pkg/services"
	"yt-m3u8-go/pkg/types"
	"yt-m3u8-go/pkg/ytdlp"
)

// maxCookieUpload bounds the accepted cookie file size.
const maxCookieUpload = 5 << 20

// Handlers contains all API handlers.
type Handlers struct {
	ctx *appctx.Context
	log *logging.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(ctx *appctx.Context) *Handlers {
	return &Handlers{
		ctx: ctx,
		log: ctx.Log.WithComponent("api"),
	}
}

// RegisterRoutes registers all API routes.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	// Public routes
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /favicon.ico", h.handleFavicon)

	// Playlist routes
	mux.HandleFunc("GET /api/m3u8", h.handlePlaylist)
	mux.HandleFunc("GET /api/m3u8/variant", h.handleVariantPlaylist)
	mux.HandleFunc("GET /api/segment", h.handleSegment)
	mux.HandleFunc("GET /proxy", h.handleProxy)

	// Metadata routes
	mux.HandleFunc("GET /api/formats", h.handleFormats)
	mux.HandleFunc("GET /api/info", h.handleInfo)
	mux.HandleFunc("GET /api/stream-url", h.handleStreamURL)

	// Cookie routes
	mux.HandleFunc("POST /api/cookies", h.handleCookiesUpload)
	mux.HandleFunc("GET /api/cookies/status", h.handleCookiesStatus)
	mux.HandleFunc("DELETE /api/cookies", h.handleCookiesDelete)
}

// handleIndex serves a short usage page.
func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>yt-m3u8</title>
    <style>
        body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; background: #0f0f0f; color: #eee; max-width: 720px; margin: 40px auto; padding: 0 20px; line-height: 1.6; }
        h1 { color: #3b82f6; }
        code { background: #242424; padding: 2px 6px; border-radius: 4px; font-size: 0.9em; }
        .endpoint { margin: 12px 0; padding: 12px 16px; background: #1a1a1a; border-radius: 8px; }
        .desc { color: #a0a0a0; font-size: 0.9em; }
    </style>
</head>
<body>
    <h1>yt-m3u8</h1>
    <p>Serves YouTube videos and livestreams as HLS playlists any player can open.</p>
    <div class="endpoint"><code>GET /api/m3u8?url=VIDEO&amp;quality=best|worst|master|720</code><div class="desc">Playlist for a video URL or ID</div></div>
    <div class="endpoint"><code>GET /api/formats?url=VIDEO</code><div class="desc">Available renditions (JSON)</div></div>
    <div class="endpoint"><code>GET /api/info?url=VIDEO</code><div class="desc">Video metadata (JSON)</div></div>
    <div class="endpoint"><code>GET /health</code><div class="desc">Server status</div></div>
</body>
</html>`)
}

// handleHealth reports server status, extractor version and whether
// cookies are loaded.
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	version, err := h.ctx.Extractor.Version(r.Context())
	if err != nil {
		h.log.Warn("extractor version check failed", "error", err)
		version = "unavailable"
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"ytdlp_version":  version,
		"cookies_loaded": h.ctx.Cookies.Path() != "",
	})
}

func (h *Handlers) handleFavicon(w http.ResponseWriter, r *http.Request) {
	http.NotFound(w, r)
}

// handlePlaylist serves the top-level playlist for a video reference.
func (h *Handlers) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("url")
	if ref == "" {
		h.writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}
	quality := types.ParseQuality(r.URL.Query().Get("quality"))

	h.log.Debug("playlist request", "ref", ref, "quality", quality.String())

	playlist, err := h.ctx.Playlists.Playlist(r.Context(), ref, quality)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writePlaylist(w, playlist)
}

// handleVariantPlaylist serves the media playlist for one variant.
func (h *Handlers) handleVariantPlaylist(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("url")
	id := r.URL.Query().Get("id")
	if ref == "" || id == "" {
		h.writeError(w, http.StatusBadRequest, "url and id parameters required")
		return
	}

	playlist, err := h.ctx.Playlists.VariantPlaylist(r.Context(), ref, id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writePlaylist(w, playlist)
}

// handleSegment reconstructs and streams one sequenced segment.
func (h *Handlers) handleSegment(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("url")
	id := r.URL.Query().Get("id")
	sqStr := r.URL.Query().Get("sq")
	if ref == "" || id == "" || sqStr == "" {
		h.writeError(w, http.StatusBadRequest, "url, id and sq parameters required")
		return
	}
	sq, err := strconv.ParseInt(sqStr, 10, 64)
	if err != nil || sq < 0 {
		h.writeError(w, http.StatusBadRequest, "sq must be a non-negative integer")
		return
	}

	seg, err := h.ctx.Segments.Fetch(r.Context(), ref, id, sq)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	defer seg.Body.Close()

	// Sequence-addressed segments are immutable once published, so a
	// short shared cache window is safe.
	w.Header().Set("Content-Type", seg.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=300")
	if seg.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(seg.ContentLength, 10))
	}
	io.Copy(w, seg.Body)
}

// handleProxy relays an allow-listed origin URL.
func (h *Handlers) handleProxy(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		h.writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}

	res, err := h.ctx.Relay.Relay(r.Context(), target)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if res.IsManifest {
		h.writePlaylist(w, res.Manifest)
		return
	}

	defer res.Body.Close()
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	if res.ContentLength >= 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(res.ContentLength, 10))
	}
	io.Copy(w, res.Body)
}

// handleFormats lists available renditions.
func (h *Handlers) handleFormats(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("url")
	if ref == "" {
		h.writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}

	list, err := h.ctx.Playlists.Formats(r.Context(), ref)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// handleInfo returns video metadata.
func (h *Handlers) handleInfo(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("url")
	if ref == "" {
		h.writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}

	info, err := h.ctx.Playlists.Metadata(r.Context(), ref)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, info)
}

// handleStreamURL resolves a direct origin URL for one quality.
func (h *Handlers) handleStreamURL(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("url")
	if ref == "" {
		h.writeError(w, http.StatusBadRequest, "url parameter required")
		return
	}
	quality := types.ParseQuality(r.URL.Query().Get("quality"))

	result, err := h.ctx.Playlists.StreamURL(r.Context(), ref, quality)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	if r.URL.Query().Get("redirect") == "true" {
		http.Redirect(w, r, result.URL, http.StatusFound)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Cookie handlers

func (h *Handlers) handleCookiesUpload(w http.ResponseWriter, r *http.Request) {
	body, err := readCookieUpload(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "reading cookie upload failed")
		return
	}
	if len(body) > maxCookieUpload {
		h.writeError(w, http.StatusRequestEntityTooLarge, "cookie file too large")
		return
	}

	if err := h.ctx.Cookies.Save(body); err != nil {
		if errors.Is(err, cookies.ErrInvalidCookieFile) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error("cookie save failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "storing cookies failed")
		return
	}

	status := h.ctx.Cookies.Status()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "saved",
		"entries": status.Entries,
		"size":    humanize.Bytes(uint64(status.SizeBytes)),
	})
}

func (h *Handlers) handleCookiesStatus(w http.ResponseWriter, r *http.Request) {
	status := h.ctx.Cookies.Status()
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"loaded":      status.Loaded,
		"entries":     status.Entries,
		"size":        humanize.Bytes(uint64(status.SizeBytes)),
		"has_youtube": status.HasYouTube,
	})
}

func (h *Handlers) handleCookiesDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.ctx.Cookies.Delete(); err != nil {
		h.log.Error("cookie delete failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "deleting cookies failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readCookieUpload accepts the cookie file either as a multipart "file"
// field or as the raw request body.
func readCookieUpload(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(maxCookieUpload); err != nil {
			return nil, err
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(io.LimitReader(f, maxCookieUpload+1))
	}
	return io.ReadAll(io.LimitReader(r.Body, maxCookieUpload+1))
}

// Helper methods

func (h *Handlers) writePlaylist(w http.ResponseWriter, playlist string) {
	w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	io.WriteString(w, playlist)
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps service errors to HTTP statuses. Sentinels keep
// the mapping in one place; anything unrecognized is a 500.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidReference):
		status = http.StatusBadRequest
	case errors.Is(err, ytdlp.ErrExtractionBlocked):
		status = http.StatusBadRequest
	case errors.Is(err, hls.ErrNoPlayableVariant), errors.Is(err, services.ErrVariantNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrForbiddenHost):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrUpstreamFetch), errors.Is(err, services.ErrSegmentFetch):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "path", r.URL.Path, "error", err)
	} else {
		h.log.Debug("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	h.writeError(w, status, err.Error())
}
