// Package types defines core domain types used throughout the application.
package types

import "strconv"

// Protocol identifies how a variant's media is delivered by the origin.
type Protocol string

const (
	// ProtocolProgressive is a single directly fetchable media resource.
	ProtocolProgressive Protocol = "progressive"
	// ProtocolHLS is segmented delivery; the variant URL points at a
	// session-signed media manifest.
	ProtocolHLS Protocol = "hls"
	// ProtocolOther covers everything else (DASH, RTMP, ...).
	ProtocolOther Protocol = "other"
)

// ParseProtocol maps a yt-dlp protocol string to a Protocol.
func ParseProtocol(s string) Protocol {
	switch s {
	case "http", "https":
		return ProtocolProgressive
	case "m3u8", "m3u8_native":
		return ProtocolHLS
	default:
		return ProtocolOther
	}
}

// LiveStatus identifies the liveness of a video.
type LiveStatus string

const (
	LiveStatusVOD      LiveStatus = "vod"
	LiveStatusLive     LiveStatus = "live"
	LiveStatusUpcoming LiveStatus = "upcoming"
)

// Variant is one encoded rendition of a video.
//
// Variants are produced fresh by every extraction call and never persisted:
// origin URLs are session-signed and expire (hours for progressive,
// seconds to minutes for segmented sessions).
type Variant struct {
	ID       string   `json:"id"`
	Height   int      `json:"height,omitempty"`
	Width    int      `json:"width,omitempty"`
	FPS      float64  `json:"fps,omitempty"`
	TBR      float64  `json:"tbr,omitempty"` // average bitrate, kbps
	VCodec   string   `json:"vcodec,omitempty"`
	ACodec   string   `json:"acodec,omitempty"`
	Ext      string   `json:"ext,omitempty"`
	Protocol Protocol `json:"protocol"`
	URL      string   `json:"-"`
}

// HasVideo reports whether the variant carries a video track.
func (v Variant) HasVideo() bool {
	return v.VCodec != "" && v.VCodec != "none"
}

// HasAudio reports whether the variant carries an audio track.
func (v Variant) HasAudio() bool {
	return v.ACodec != "" && v.ACodec != "none"
}

// Playable reports whether the variant can actually be served: it must
// have a video track and a resolvable origin URL.
func (v Variant) Playable() bool {
	return v.HasVideo() && v.URL != ""
}

// VideoInfo is the aggregate result of one extraction call.
type VideoInfo struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Uploader    string     `json:"uploader,omitempty"`
	UploadDate  string     `json:"upload_date,omitempty"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	Duration    float64    `json:"duration,omitempty"`
	ViewCount   int64      `json:"view_count,omitempty"`
	LikeCount   int64      `json:"like_count,omitempty"`
	LiveStatus  LiveStatus `json:"live_status"`
	ManifestURL string     `json:"-"` // live HLS master manifest, session-signed
	Variants    []Variant  `json:"variants"`
}

// IsLive reports whether the video is live or upcoming. Duration is
// authoritative only for VOD; live playlists must declare themselves
// open-ended.
func (i *VideoInfo) IsLive() bool {
	return i.LiveStatus == LiveStatusLive || i.LiveStatus == LiveStatusUpcoming
}

// QualityKind classifies a quality selector.
type QualityKind int

const (
	QualityBest QualityKind = iota
	QualityWorst
	QualityMaster
	QualityHeight
)

// Quality is a parsed quality request parameter.
type Quality struct {
	Kind   QualityKind
	Height int
}

// ParseQuality parses a quality request parameter. Recognized values are
// "best", "worst", "master" and a literal target height; an unparsable
// literal falls back to best.
func ParseQuality(s string) Quality {
	switch s {
	case "", "best":
		return Quality{Kind: QualityBest}
	case "worst":
		return Quality{Kind: QualityWorst}
	case "master":
		return Quality{Kind: QualityMaster}
	}
	if h, err := strconv.Atoi(s); err == nil && h > 0 {
		return Quality{Kind: QualityHeight, Height: h}
	}
	return Quality{Kind: QualityBest}
}

// String renders the quality the way it appears in request parameters.
func (q Quality) String() string {
	switch q.Kind {
	case QualityWorst:
		return "worst"
	case QualityMaster:
		return "master"
	case QualityHeight:
		return strconv.Itoa(q.Height)
	default:
		return "best"
	}
}
