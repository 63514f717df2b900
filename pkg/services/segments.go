package services

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"yt-m3u8-go/pkg/hls"
	"yt-m3u8-go/pkg/interfaces"
	"yt-m3u8-go/pkg/logging"
	"yt-m3u8-go/pkg/types"
	"yt-m3u8-go/pkg/urlutil"
)

// Segment is a reconstructed media segment ready to stream to the client.
type Segment struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

// SegmentService reconstructs segment URLs from (video, variant,
// sequence) tuples. Served playlists never embed raw segment URLs for
// sequenced streams; those expire within seconds, so the real URL is
// rebuilt from a fresh manifest at fetch time.
type SegmentService struct {
	extractor       interfaces.Extractor
	client          interfaces.HTTPDoer
	manifestTimeout time.Duration
	relayTimeout    time.Duration
	log             *logging.Logger
}

// NewSegmentService creates a segment service.
func NewSegmentService(extractor interfaces.Extractor, client interfaces.HTTPDoer, manifestTimeout, relayTimeout time.Duration, log *logging.Logger) *SegmentService {
	return &SegmentService{
		extractor:       extractor,
		client:          client,
		manifestTimeout: manifestTimeout,
		relayTimeout:    relayTimeout,
		log:             log.WithComponent("segments"),
	}
}

// Fetch re-extracts the video, resolves the variant's current media
// manifest and streams the segment with the requested sequence number.
// The segment must be fetched immediately after the manifest that names
// it; any delay risks the signed URL expiring.
func (s *SegmentService) Fetch(ctx context.Context, ref, variantID string, seq int64) (*Segment, error) {
	videoURL, err := NormalizeReference(ref)
	if err != nil {
		return nil, err
	}
	info, err := s.extractor.Extract(ctx, videoURL)
	if err != nil {
		return nil, err
	}

	v, ok := findVariant(info.Variants, variantID)
	if !ok || v.Protocol != types.ProtocolHLS {
		v, err = hls.SelectHLS(info.Variants, types.Quality{Kind: types.QualityBest})
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrVariantNotFound, variantID)
		}
	}

	manifest, err := fetchManifest(ctx, s.client, v.URL, s.manifestTimeout)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSegmentFetch, err)
	}

	segmentURL, err := segmentURLFor(manifest, v.URL, seq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSegmentFetch, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.relayTimeout)
	resp, err := openOrigin(ctx, s.client, segmentURL)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrSegmentFetch, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("%w: origin returned %d for sequence %d", ErrSegmentFetch, resp.StatusCode, seq)
	}
	s.log.Debug("segment fetched", "video_id", info.ID, "variant", v.ID, "sq", seq, "bytes", resp.ContentLength)
	return &Segment{
		Body:          &cancelingBody{ReadCloser: resp.Body, cancel: cancel},
		ContentType:   mediaContentType(segmentURL, resp.Header.Get("Content-Type")),
		ContentLength: resp.ContentLength,
	}, nil
}

// segmentURLFor finds or rebuilds the origin URL for one sequence
// number. Preference order: the exact segment named in the manifest's
// current window, then pattern substitution into any windowed segment
// URL, then substitution into the manifest URL itself.
func segmentURLFor(manifest, manifestURL string, seq int64) (string, error) {
	var template string
	sc := bufio.NewScanner(strings.NewReader(manifest))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		abs := urlutil.ResolveURL(line, manifestURL)
		n, ok := urlutil.SequenceNumber(abs)
		if !ok {
			continue
		}
		if n == seq {
			return abs, nil
		}
		if template == "" {
			template = abs
		}
	}
	if err := sc.Err(); err != nil {
		return "", fmt.Errorf("scanning manifest: %w", err)
	}
	if template != "" {
		if u, ok := urlutil.WithSequence(template, seq); ok {
			return u, nil
		}
	}
	if u, ok := urlutil.WithSequence(manifestURL, seq); ok {
		return u, nil
	}
	return "", fmt.Errorf("sequence %d not reconstructable", seq)
}

// cancelingBody releases the fetch timeout when the segment body is
// fully consumed or abandoned.
type cancelingBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelingBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
