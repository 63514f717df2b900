package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"yt-m3u8-go/pkg/config"
	"yt-m3u8-go/pkg/logging"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth(t *testing.T) {
	log := logging.New("error", false, io.Discard)

	tests := []struct {
		name     string
		apiKey   string
		path     string
		header   string
		query    string
		wantCode int
	}{
		{
			name:     "no key configured allows access",
			apiKey:   "",
			path:     "/api/m3u8",
			wantCode: http.StatusOK,
		},
		{
			name:     "correct header",
			apiKey:   "secret",
			path:     "/api/m3u8",
			header:   "secret",
			wantCode: http.StatusOK,
		},
		{
			name:     "correct query parameter",
			apiKey:   "secret",
			path:     "/api/m3u8",
			query:    "secret",
			wantCode: http.StatusOK,
		},
		{
			name:     "wrong header",
			apiKey:   "secret",
			path:     "/api/m3u8",
			header:   "wrong",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "no credentials",
			apiKey:   "secret",
			path:     "/api/m3u8",
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "health stays public",
			apiKey:   "secret",
			path:     "/health",
			wantCode: http.StatusOK,
		},
		{
			name:     "index stays public",
			apiKey:   "secret",
			path:     "/",
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{APIKey: tt.apiKey}
			handler := Auth(cfg, log)(okHandler())

			target := tt.path
			if tt.query != "" {
				target += "?api_key=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-ID")
	}))

	t.Run("generated when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if seen == "" {
			t.Error("no request ID generated")
		}
		if w.Header().Get("X-Request-ID") != seen {
			t.Error("request ID not echoed in response")
		}
	})

	t.Run("preserved when present", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "client-id")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if seen != "client-id" {
			t.Errorf("request ID = %q, want client-id", seen)
		}
	})
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS(okHandler())

	req := httptest.NewRequest(http.MethodOptions, "/api/m3u8", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS headers")
	}
}

func TestRecovery(t *testing.T) {
	log := logging.New("error", false, io.Discard)
	handler := Recovery(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	handler := Chain(okHandler(), mw("first"), mw("second"))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Errorf("order = %v", order)
	}
}
