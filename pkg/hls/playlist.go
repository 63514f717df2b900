package hls

import (
	"fmt"
	"math"
	"strings"

	"yt-m3u8-go/pkg/types"
)

// MaxMasterVariants caps how many renditions a synthesized master playlist
// lists.
const MaxMasterVariants = 8

const (
	defaultBandwidth = 1_000_000 // 1000 kbps when the origin reports no bitrate
	defaultFrameRate = 30
)

// MediaPlaylist builds a single-segment media playlist for a progressive
// (non-segmented) variant: the whole resource is declared as one segment.
// Live content never uses this form.
func MediaPlaylist(duration float64, title string, segmentURL string) string {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	fmt.Fprintf(&b, "#EXT-X-TARGETDURATION:%d\n", int(math.Ceil(duration))+1)
	b.WriteString("#EXT-X-MEDIA-SEQUENCE:0\n")
	b.WriteString("#EXT-X-PLAYLIST-TYPE:VOD\n")
	fmt.Fprintf(&b, "#EXTINF:%.3f,%s\n", duration, title)
	b.WriteString(segmentURL)
	b.WriteString("\n#EXT-X-ENDLIST\n")
	return b.String()
}

// MasterPlaylist builds a master playlist from variants already
// deduplicated by height and sorted descending (see BestPerHeight). At
// most MaxMasterVariants entries are emitted. uriFor produces the
// sub-resource URI for each variant, never a raw origin URL, so
// sub-resources can always be re-extracted fresh.
func MasterPlaylist(variants []types.Variant, uriFor func(types.Variant) string) string {
	if len(variants) > MaxMasterVariants {
		variants = variants[:MaxMasterVariants]
	}

	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	b.WriteString("#EXT-X-VERSION:3\n")
	for _, v := range variants {
		fmt.Fprintf(&b, "#EXT-X-STREAM-INF:BANDWIDTH=%d,RESOLUTION=%dx%d,FRAME-RATE=%d,NAME=\"%dp\"\n",
			bandwidth(v), width(v), v.Height, frameRate(v), v.Height)
		b.WriteString(uriFor(v))
		b.WriteByte('\n')
	}
	return b.String()
}

func bandwidth(v types.Variant) int {
	if v.TBR > 0 {
		return int(v.TBR * 1000)
	}
	return defaultBandwidth
}

func width(v types.Variant) int {
	if v.Width > 0 {
		return v.Width
	}
	return v.Height * 16 / 9
}

func frameRate(v types.Variant) int {
	if v.FPS > 0 {
		return int(v.FPS)
	}
	return defaultFrameRate
}
