package services

import (
	"errors"
	"strings"
	"testing"

	"yt-m3u8-go/pkg/types"
)

func TestNormalizeReference(t *testing.T) {
	tests := []struct {
		name    string
		ref     string
		want    string
		wantErr bool
	}{
		{
			name: "bare video id",
			ref:  "dQw4w9WgXcQ",
			want: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name: "watch url passes through",
			ref:  "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			want: "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		},
		{
			name: "short url passes through",
			ref:  "https://youtu.be/dQw4w9WgXcQ",
			want: "https://youtu.be/dQw4w9WgXcQ",
		},
		{
			name: "id with url-safe characters",
			ref:  "a-b_c123XYZ",
			want: "https://www.youtube.com/watch?v=a-b_c123XYZ",
		},
		{
			name:    "empty",
			ref:     "",
			wantErr: true,
		},
		{
			name:    "whitespace only",
			ref:     "   ",
			wantErr: true,
		},
		{
			name:    "wrong-length id",
			ref:     "short",
			wantErr: true,
		},
		{
			name:    "unsupported scheme",
			ref:     "ftp://example.com/video",
			wantErr: true,
		},
		{
			name:    "scheme-less host",
			ref:     "www.youtube.com/watch?v=dQw4w9WgXcQ",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeReference(tt.ref)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidReference) {
					t.Fatalf("NormalizeReference(%q) error = %v, want ErrInvalidReference", tt.ref, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizeReference(%q) unexpected error: %v", tt.ref, err)
			}
			if got != tt.want {
				t.Errorf("NormalizeReference(%q) = %q, want %q", tt.ref, got, tt.want)
			}
		})
	}
}

func TestLinks(t *testing.T) {
	l := NewLinks("http://svc.example/", "")

	if got := l.Proxy("https://origin.example/seg.ts?sig=a&b=c"); got != "http://svc.example/proxy?url=https%3A%2F%2Forigin.example%2Fseg.ts%3Fsig%3Da%26b%3Dc" {
		t.Errorf("Proxy link = %q", got)
	}
	if got := l.VariantPlaylist("dQw4w9WgXcQ", "134"); got != "http://svc.example/api/m3u8/variant?url=dQw4w9WgXcQ&id=134" {
		t.Errorf("VariantPlaylist link = %q", got)
	}
	if got := l.Segment("dQw4w9WgXcQ", "134", 42); got != "http://svc.example/api/segment?url=dQw4w9WgXcQ&id=134&sq=42" {
		t.Errorf("Segment link = %q", got)
	}
	if got := l.Playlist("dQw4w9WgXcQ", types.Quality{Kind: types.QualityHeight, Height: 720}); got != "http://svc.example/api/m3u8?url=dQw4w9WgXcQ&quality=720" {
		t.Errorf("Playlist link = %q", got)
	}
}

func TestLinksCarryAPIKey(t *testing.T) {
	l := NewLinks("http://svc.example", "s3cr3t&")

	links := []string{
		l.Proxy("https://origin.example/seg.ts"),
		l.Playlist("dQw4w9WgXcQ", types.Quality{Kind: types.QualityBest}),
		l.VariantPlaylist("dQw4w9WgXcQ", "134"),
		l.Segment("dQw4w9WgXcQ", "134", 42),
	}
	for _, got := range links {
		if !strings.HasSuffix(got, "&api_key=s3cr3t%26") {
			t.Errorf("link missing escaped key: %q", got)
		}
	}
}

func TestLinksEscapeReference(t *testing.T) {
	l := NewLinks("http://svc.example", "")
	got := l.VariantPlaylist("https://www.youtube.com/watch?v=dQw4w9WgXcQ", "134")
	if strings.Contains(got, "watch?v=") {
		t.Errorf("reference not escaped in %q", got)
	}
}
