package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"yt-m3u8-go/pkg/appctx"
	"yt-m3u8-go/pkg/config"
	"yt-m3u8-go/pkg/cookies"
	"yt-m3u8-go/pkg/logging"
	"yt-m3u8-go/pkg/middleware"
	"yt-m3u8-go/pkg/services"
	"yt-m3u8-go/pkg/types"
	"yt-m3u8-go/pkg/ytdlp"
)

type fakeExtractor struct {
	info *types.VideoInfo
	err  error
}

func (f *fakeExtractor) Extract(ctx context.Context, videoURL string) (*types.VideoInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.info
	cp.Variants = append([]types.Variant(nil), f.info.Variants...)
	return &cp, nil
}

func (f *fakeExtractor) Version(ctx context.Context) (string, error) {
	return "2026.08.01", nil
}

func testInfo(manifestURL string) *types.VideoInfo {
	return &types.VideoInfo{
		ID: "vid", Title: "clip", Duration: 120,
		LiveStatus: types.LiveStatusVOD,
		Variants: []types.Variant{
			{ID: "hls-720", Height: 720, Width: 1280, TBR: 2500, VCodec: "avc1", ACodec: "mp4a", Protocol: types.ProtocolHLS, URL: manifestURL},
			{ID: "prog-360", Height: 360, Width: 640, TBR: 700, VCodec: "avc1", ACodec: "mp4a", Protocol: types.ProtocolProgressive, URL: "https://origin.example/videoplayback"},
		},
	}
}

func newTestMux(t *testing.T, ex *fakeExtractor, client *http.Client, allowedHosts []string) *http.ServeMux {
	t.Helper()
	if client == nil {
		client = http.DefaultClient
	}
	log := logging.New("error", false, io.Discard)
	cfg := &config.Config{BaseURL: "http://localhost:8000"}
	store := cookies.New(t.TempDir(), "", log)
	links := services.NewLinks(cfg.BaseURL, cfg.APIKey)

	ctx := appctx.New(cfg, log).
		WithExtractor(ex).
		WithCookies(store).
		WithServices(
			services.NewPlaylistService(ex, client, links, 5*time.Second, log),
			services.NewSegmentService(ex, client, 5*time.Second, 5*time.Second, log),
			services.NewRelayService(client, links, allowedHosts, 5*time.Second, log),
		)

	mux := http.NewServeMux()
	NewHandlers(ctx).RegisterRoutes(mux)
	return mux
}

func get(mux *http.ServeMux, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHandlePlaylist(t *testing.T) {
	ex := &fakeExtractor{info: testInfo("https://origin.example/hls/index.m3u8")}
	mux := newTestMux(t, ex, nil, nil)

	w := get(mux, "/api/m3u8?url=dQw4w9WgXcQ&quality=master")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/vnd.apple.mpegurl" {
		t.Errorf("Content-Type = %q", ct)
	}
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "no-cache") {
		t.Errorf("Cache-Control = %q", cc)
	}
	if !strings.HasPrefix(w.Body.String(), "#EXTM3U") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestHandlePlaylistMissingURL(t *testing.T) {
	mux := newTestMux(t, &fakeExtractor{info: testInfo("x")}, nil, nil)

	w := get(mux, "/api/m3u8")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"error"`) {
		t.Errorf("body = %q, want JSON error", w.Body.String())
	}
}

func TestHandlePlaylistInvalidReference(t *testing.T) {
	mux := newTestMux(t, &fakeExtractor{info: testInfo("x")}, nil, nil)

	w := get(mux, "/api/m3u8?url="+url.QueryEscape("not a reference"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleVariantPlaylistParams(t *testing.T) {
	mux := newTestMux(t, &fakeExtractor{info: testInfo("x")}, nil, nil)

	w := get(mux, "/api/m3u8/variant?url=dQw4w9WgXcQ")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleSegmentBadSequence(t *testing.T) {
	mux := newTestMux(t, &fakeExtractor{info: testInfo("x")}, nil, nil)

	for _, sq := range []string{"", "abc", "-1"} {
		w := get(mux, "/api/segment?url=dQw4w9WgXcQ&id=hls-720&sq="+sq)
		if w.Code != http.StatusBadRequest {
			t.Errorf("sq=%q status = %d, want 400", sq, w.Code)
		}
	}
}

func TestHandleProxyForbiddenHost(t *testing.T) {
	mux := newTestMux(t, &fakeExtractor{info: testInfo("x")}, nil, []string{"googlevideo.com"})

	w := get(mux, "/proxy?url="+url.QueryEscape("https://evil.example/seg.ts"))
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}

func TestHandleProxyRelaysSegment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "video/MP2T")
		io.WriteString(w, "ts-bytes")
	}))
	defer srv.Close()
	host := strings.TrimPrefix(srv.URL, "http://")
	host = strings.Split(host, ":")[0]

	mux := newTestMux(t, &fakeExtractor{info: testInfo("x")}, srv.Client(), []string{host})

	w := get(mux, "/proxy?url="+url.QueryEscape(srv.URL+"/sq/1/seg.ts"))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "ts-bytes" {
		t.Errorf("body = %q", w.Body.String())
	}
	if cc := w.Header().Get("Cache-Control"); !strings.Contains(cc, "max-age") {
		t.Errorf("segment response not cacheable: %q", cc)
	}
}

func TestEmbeddedLinksPassAuthGate(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, ".m3u8") {
			w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
			io.WriteString(w, "#EXTM3U\n#EXT-X-MEDIA-SEQUENCE:10\n#EXTINF:5.0,\nsq/10/seg.ts\n")
			return
		}
		w.Header().Set("Content-Type", "video/MP2T")
		io.WriteString(w, "ts-bytes")
	}))
	defer origin.Close()

	ex := &fakeExtractor{info: testInfo(origin.URL + "/hls/index.m3u8")}
	log := logging.New("error", false, io.Discard)
	cfg := &config.Config{BaseURL: "http://localhost:8000", APIKey: "secret"}
	store := cookies.New(t.TempDir(), "", log)
	links := services.NewLinks(cfg.BaseURL, cfg.APIKey)

	appCtx := appctx.New(cfg, log).
		WithExtractor(ex).
		WithCookies(store).
		WithServices(
			services.NewPlaylistService(ex, origin.Client(), links, 5*time.Second, log),
			services.NewSegmentService(ex, origin.Client(), 5*time.Second, 5*time.Second, log),
			services.NewRelayService(origin.Client(), links, nil, 5*time.Second, log),
		)
	mux := http.NewServeMux()
	NewHandlers(appCtx).RegisterRoutes(mux)
	handler := middleware.Chain(mux, middleware.Auth(cfg, log))

	fetch := func(target string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
		return w
	}

	if w := fetch("/api/m3u8?url=dQw4w9WgXcQ&quality=master"); w.Code != http.StatusUnauthorized {
		t.Fatalf("keyless request status = %d, want 401", w.Code)
	}

	master := fetch("/api/m3u8?url=dQw4w9WgXcQ&quality=master&api_key=secret")
	if master.Code != http.StatusOK {
		t.Fatalf("master playlist status = %d, body = %s", master.Code, master.Body.String())
	}

	// A player follows embedded links with no way to attach headers;
	// each hop must clear the gate on the link alone.
	variantLink := firstBareLine(t, master.Body.String())
	variant := fetch(strings.TrimPrefix(variantLink, cfg.BaseURL))
	if variant.Code != http.StatusOK {
		t.Fatalf("embedded variant link %q status = %d, body = %s", variantLink, variant.Code, variant.Body.String())
	}

	segmentLink := firstBareLine(t, variant.Body.String())
	segment := fetch(strings.TrimPrefix(segmentLink, cfg.BaseURL))
	if segment.Code != http.StatusOK {
		t.Fatalf("embedded segment link %q status = %d, body = %s", segmentLink, segment.Code, segment.Body.String())
	}
	if segment.Body.String() != "ts-bytes" {
		t.Errorf("segment body = %q", segment.Body.String())
	}
}

func firstBareLine(t *testing.T, playlist string) string {
	t.Helper()
	for _, line := range strings.Split(playlist, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			return line
		}
	}
	t.Fatalf("no URI lines in playlist:\n%s", playlist)
	return ""
}

func TestHandleFormats(t *testing.T) {
	ex := &fakeExtractor{info: testInfo("https://origin.example/hls/index.m3u8")}
	mux := newTestMux(t, ex, nil, nil)

	w := get(mux, "/api/formats?url=dQw4w9WgXcQ")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var list services.FormatList
	if err := json.NewDecoder(w.Body).Decode(&list); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if list.VideoID != "vid" || len(list.Formats) != 2 {
		t.Errorf("list = %+v", list)
	}
}

func TestHandleInfoTruncatesDescription(t *testing.T) {
	info := testInfo("https://origin.example/hls/index.m3u8")
	info.Description = strings.Repeat("d", 1000)
	mux := newTestMux(t, &fakeExtractor{info: info}, nil, nil)

	w := get(mux, "/api/info?url=dQw4w9WgXcQ")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var got types.VideoInfo
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(got.Description) > 510 {
		t.Errorf("description not truncated: %d bytes", len(got.Description))
	}
}

func TestHandleStreamURL(t *testing.T) {
	ex := &fakeExtractor{info: testInfo("https://origin.example/hls/index.m3u8")}
	mux := newTestMux(t, ex, nil, nil)

	w := get(mux, "/api/stream-url?url=dQw4w9WgXcQ&quality=360")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var got services.StreamURL
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.ID != "prog-360" {
		t.Errorf("variant = %q, want prog-360", got.ID)
	}

	w = get(mux, "/api/stream-url?url=dQw4w9WgXcQ&quality=360&redirect=true")
	if w.Code != http.StatusFound {
		t.Errorf("redirect status = %d, want 302", w.Code)
	}
	if loc := w.Header().Get("Location"); loc != "https://origin.example/videoplayback" {
		t.Errorf("Location = %q", loc)
	}
}

func TestHandleHealth(t *testing.T) {
	mux := newTestMux(t, &fakeExtractor{info: testInfo("x")}, nil, nil)

	w := get(mux, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "2026.08.01") || !strings.Contains(body, "cookies_loaded") {
		t.Errorf("body = %q", body)
	}
}

func TestHandleCookies(t *testing.T) {
	mux := newTestMux(t, &fakeExtractor{info: testInfo("x")}, nil, nil)

	upload := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/cookies", strings.NewReader(body))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		return w
	}

	t.Run("invalid upload rejected", func(t *testing.T) {
		w := upload("this is not a cookie file")
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	valid := "# Netscape HTTP Cookie File\n.youtube.com\tTRUE\t/\tTRUE\t0\tSID\tabc\n"

	t.Run("valid upload", func(t *testing.T) {
		w := upload(valid)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
		}
		if !strings.Contains(w.Body.String(), `"entries":1`) {
			t.Errorf("body = %q", w.Body.String())
		}
	})

	t.Run("multipart upload", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		fw, err := mw.CreateFormFile("file", "cookies.txt")
		if err != nil {
			t.Fatalf("creating form file: %v", err)
		}
		io.WriteString(fw, valid)
		mw.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/cookies", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
		}
	})

	t.Run("status after upload", func(t *testing.T) {
		w := get(mux, "/api/cookies/status")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		if !strings.Contains(w.Body.String(), `"loaded":true`) {
			t.Errorf("body = %q", w.Body.String())
		}
	})

	t.Run("delete", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/api/cookies", nil)
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		if w.Code != http.StatusNoContent {
			t.Errorf("status = %d, want 204", w.Code)
		}
	})
}

func TestWriteServiceError(t *testing.T) {
	log := logging.New("error", false, io.Discard)
	cfg := &config.Config{BaseURL: "http://localhost:8000"}
	h := NewHandlers(appctx.New(cfg, log))

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid reference", fmt.Errorf("wrap: %w", services.ErrInvalidReference), http.StatusBadRequest},
		{"extraction blocked", fmt.Errorf("wrap: %w", ytdlp.ErrExtractionBlocked), http.StatusBadRequest},
		{"variant not found", fmt.Errorf("wrap: %w", services.ErrVariantNotFound), http.StatusNotFound},
		{"forbidden host", fmt.Errorf("wrap: %w", services.ErrForbiddenHost), http.StatusForbidden},
		{"upstream fetch", fmt.Errorf("wrap: %w", services.ErrUpstreamFetch), http.StatusBadGateway},
		{"segment fetch", fmt.Errorf("wrap: %w", services.ErrSegmentFetch), http.StatusBadGateway},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/m3u8", nil)
			h.writeServiceError(w, req, tt.err)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
