package services

import (
	"context"
	"fmt"
	"time"

	"yt-m3u8-go/pkg/hls"
	"yt-m3u8-go/pkg/interfaces"
	"yt-m3u8-go/pkg/logging"
	"yt-m3u8-go/pkg/types"
)

// PlaylistService synthesizes client-facing playlists. Every operation
// starts with a fresh extraction so the origin URLs embedded (wrapped)
// in the output are valid at the moment the client receives them.
type PlaylistService struct {
	extractor       interfaces.Extractor
	client          interfaces.HTTPDoer
	links           Links
	manifestTimeout time.Duration
	log             *logging.Logger
}

// NewPlaylistService creates a playlist service.
func NewPlaylistService(extractor interfaces.Extractor, client interfaces.HTTPDoer, links Links, manifestTimeout time.Duration, log *logging.Logger) *PlaylistService {
	return &PlaylistService{
		extractor:       extractor,
		client:          client,
		links:           links,
		manifestTimeout: manifestTimeout,
		log:             log.WithComponent("playlist"),
	}
}

// Playlist produces the top-level playlist for a video reference.
//
// Live videos and quality=master yield a master playlist whose entries
// point at the variant sub-resource endpoint, so each rendition is
// re-resolved when the player actually selects it. A single-quality VOD
// request resolves one variant now: HLS variants still go through the
// sub-resource endpoint (a one-entry master) because their media
// manifests must be fetched as late as possible, while progressive
// variants become a single-segment media playlist around a relay link.
func (s *PlaylistService) Playlist(ctx context.Context, ref string, q types.Quality) (string, error) {
	info, err := s.extract(ctx, ref)
	if err != nil {
		return "", err
	}

	if q.Kind == types.QualityMaster || info.IsLive() {
		variants := hls.BestPerHeight(info.Variants)
		if len(variants) == 0 {
			// Some live extractions report only a master manifest URL
			// with no per-format entries; relay that manifest directly.
			if info.ManifestURL != "" {
				manifest, err := fetchManifest(ctx, s.client, info.ManifestURL, s.manifestTimeout)
				if err != nil {
					return "", err
				}
				rewritten, err := hls.Rewrite(manifest, info.ManifestURL, s.links.Proxy)
				if err != nil {
					return "", fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
				}
				return rewritten, nil
			}
			return "", hls.ErrNoPlayableVariant
		}
		s.log.Info("serving master playlist", "video_id", info.ID, "variants", len(variants), "live", info.IsLive())
		return hls.MasterPlaylist(variants, func(v types.Variant) string {
			return s.links.VariantPlaylist(ref, v.ID)
		}), nil
	}

	v, err := hls.Select(info.Variants, q)
	if err != nil {
		return "", err
	}
	s.log.Info("serving playlist", "video_id", info.ID, "variant", v.ID, "height", v.Height, "protocol", v.Protocol)

	if v.Protocol == types.ProtocolHLS {
		return hls.MasterPlaylist([]types.Variant{v}, func(v types.Variant) string {
			return s.links.VariantPlaylist(ref, v.ID)
		}), nil
	}
	return hls.MediaPlaylist(info.Duration, info.Title, s.links.Proxy(v.URL)), nil
}

// VariantPlaylist resolves one variant to its playable media playlist.
// It re-extracts on every call; the variant ID from a previously served
// master playlist is looked up against the fresh variant set, falling
// back to the best available variant when the set shifted between
// extractions.
func (s *PlaylistService) VariantPlaylist(ctx context.Context, ref, variantID string) (string, error) {
	info, err := s.extract(ctx, ref)
	if err != nil {
		return "", err
	}

	v, ok := findVariant(info.Variants, variantID)
	if !ok {
		v, err = hls.Select(info.Variants, types.Quality{Kind: types.QualityBest})
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrVariantNotFound, variantID)
		}
		s.log.Warn("variant gone after re-extraction, using best", "video_id", info.ID, "requested", variantID, "selected", v.ID)
	}

	if v.Protocol != types.ProtocolHLS {
		return hls.MediaPlaylist(info.Duration, info.Title, s.links.Proxy(v.URL)), nil
	}

	manifest, err := fetchManifest(ctx, s.client, v.URL, s.manifestTimeout)
	if err != nil {
		return "", err
	}
	rewritten, err := hls.RewriteSequenced(manifest, v.URL, s.links.Proxy, func(seq int64) string {
		return s.links.Segment(ref, v.ID, seq)
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstreamFetch, err)
	}
	return rewritten, nil
}

func (s *PlaylistService) extract(ctx context.Context, ref string) (*types.VideoInfo, error) {
	videoURL, err := NormalizeReference(ref)
	if err != nil {
		return nil, err
	}
	info, err := s.extractor.Extract(ctx, videoURL)
	if err != nil {
		return nil, err
	}
	if len(info.Variants) == 0 && info.ManifestURL == "" {
		return nil, hls.ErrNoPlayableVariant
	}
	return info, nil
}

func findVariant(variants []types.Variant, id string) (types.Variant, bool) {
	for _, v := range variants {
		if v.ID == id && v.Playable() {
			return v, true
		}
	}
	return types.Variant{}, false
}
