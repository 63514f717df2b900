package services

import (
	"context"
	"unicode/utf8"

	"yt-m3u8-go/pkg/hls"
	"yt-m3u8-go/pkg/types"
)

// maxDescriptionLen caps the description field in metadata responses.
const maxDescriptionLen = 500

// Format is one row of the format listing, pairing variant metadata
// with a ready-to-play playlist link.
type Format struct {
	ID          string  `json:"id"`
	Height      int     `json:"height,omitempty"`
	Width       int     `json:"width,omitempty"`
	FPS         float64 `json:"fps,omitempty"`
	TBR         float64 `json:"tbr,omitempty"`
	VCodec      string  `json:"vcodec,omitempty"`
	ACodec      string  `json:"acodec,omitempty"`
	Ext         string  `json:"ext,omitempty"`
	Protocol    string  `json:"protocol"`
	PlaylistURL string  `json:"playlist_url"`
}

// FormatList is the response body of the format listing.
type FormatList struct {
	VideoID string   `json:"video_id"`
	Title   string   `json:"title"`
	Live    bool     `json:"live"`
	Formats []Format `json:"formats"`
}

// StreamURL is a resolved direct origin URL. The URL is session-signed
// and short-lived; callers must use it promptly.
type StreamURL struct {
	URL      string  `json:"url"`
	ID       string  `json:"id"`
	Height   int     `json:"height,omitempty"`
	TBR      float64 `json:"tbr,omitempty"`
	Protocol string  `json:"protocol"`
}

// Formats lists the distinct playable renditions of a video, best
// bitrate per height, each with a playlist link at that height.
func (s *PlaylistService) Formats(ctx context.Context, ref string) (*FormatList, error) {
	info, err := s.extract(ctx, ref)
	if err != nil {
		return nil, err
	}
	variants := hls.BestPerHeight(info.Variants)
	if len(variants) == 0 {
		return nil, hls.ErrNoPlayableVariant
	}
	list := &FormatList{
		VideoID: info.ID,
		Title:   info.Title,
		Live:    info.IsLive(),
		Formats: make([]Format, 0, len(variants)),
	}
	for _, v := range variants {
		list.Formats = append(list.Formats, Format{
			ID:          v.ID,
			Height:      v.Height,
			Width:       v.Width,
			FPS:         v.FPS,
			TBR:         v.TBR,
			VCodec:      v.VCodec,
			ACodec:      v.ACodec,
			Ext:         v.Ext,
			Protocol:    string(v.Protocol),
			PlaylistURL: s.links.Playlist(ref, types.Quality{Kind: types.QualityHeight, Height: v.Height}),
		})
	}
	return list, nil
}

// Metadata returns video metadata with the description truncated to a
// display-friendly length.
func (s *PlaylistService) Metadata(ctx context.Context, ref string) (*types.VideoInfo, error) {
	info, err := s.extract(ctx, ref)
	if err != nil {
		return nil, err
	}
	info.Description = truncate(info.Description, maxDescriptionLen)
	return info, nil
}

// truncate shortens s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// StreamURL resolves the direct origin URL for one quality without any
// playlist wrapping.
func (s *PlaylistService) StreamURL(ctx context.Context, ref string, q types.Quality) (*StreamURL, error) {
	info, err := s.extract(ctx, ref)
	if err != nil {
		return nil, err
	}
	v, err := hls.Select(info.Variants, q)
	if err != nil {
		return nil, err
	}
	return &StreamURL{
		URL:      v.URL,
		ID:       v.ID,
		Height:   v.Height,
		TBR:      v.TBR,
		Protocol: string(v.Protocol),
	}, nil
}
