// Package interfaces defines the abstractions the services are built
// against, keeping the extraction collaborator swappable in tests.
package interfaces

import (
	"context"
	"net/http"

	"yt-m3u8-go/pkg/types"
)

// Extractor resolves a video reference into fresh variant metadata.
// Every call performs a new extraction: origin URLs are session-signed
// and must never be reused across requests.
type Extractor interface {
	// Extract fetches metadata and the current variant set for a video.
	Extract(ctx context.Context, videoURL string) (*types.VideoInfo, error)

	// Version reports the underlying extraction library version.
	Version(ctx context.Context) (string, error)
}

// HTTPDoer abstracts HTTP execution for testability.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CookieStore manages the shared extraction credential file.
type CookieStore interface {
	// Path returns the credential file location, or "" when none is loaded.
	Path() string
}
