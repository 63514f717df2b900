package httpclient

import (
	"net/http"
	"testing"

	"yt-m3u8-go/pkg/config"
	"yt-m3u8-go/pkg/logging"
)

func testClient(t *testing.T, cfg *config.Config) *Client {
	t.Helper()
	return New(cfg, logging.New("error", false, nil))
}

func TestApplyOriginHeaders(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "https://r4.googlevideo.com/videoplayback", nil)
	req.Header.Set("Referer", "https://music.youtube.com/")

	ApplyOriginHeaders(req)

	if got := req.Header.Get("Referer"); got != "https://music.youtube.com/" {
		t.Errorf("existing Referer overridden: %q", got)
	}
	if req.Header.Get("User-Agent") == "" {
		t.Error("User-Agent not applied")
	}
	if got := req.Header.Get("Origin"); got != "https://www.youtube.com" {
		t.Errorf("Origin = %q", got)
	}
}

func TestClientForURL(t *testing.T) {
	c := testClient(t, &config.Config{
		UTLSDomains: []string{"fingerprinted.example.com"},
	})

	if got := c.clientForURL("https://fingerprinted.example.com/seg.ts"); got != c.utlsClient {
		t.Error("expected utls client for fingerprinted domain")
	}
	if got := c.clientForURL("https://r4.googlevideo.com/videoplayback"); got != c.defaultClient {
		t.Error("expected default client for plain domain")
	}
}

func TestClientForURLGlobalProxy(t *testing.T) {
	c := testClient(t, &config.Config{
		GlobalProxies: []string{"socks5://127.0.0.1:1080"},
	})

	first := c.clientForURL("https://r4.googlevideo.com/videoplayback")
	if first == c.defaultClient {
		t.Fatal("expected proxy client, got default")
	}
	second := c.clientForURL("https://r5.googlevideo.com/videoplayback")
	if first != second {
		t.Error("proxy client not cached")
	}
}

func TestCreateProxyClientUnsupportedScheme(t *testing.T) {
	c := testClient(t, &config.Config{})

	if got := c.createProxyClient("ftp://proxy.example.com"); got != c.defaultClient {
		t.Error("unsupported scheme should fall back to default client")
	}
}
