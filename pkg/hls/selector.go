// Package hls implements the manifest synthesis and rewriting engine:
// variant selection, media/master playlist construction, and rewriting of
// fetched manifests so every URI routes through the service's own
// endpoints.
package hls

import (
	"errors"
	"sort"

	"yt-m3u8-go/pkg/types"
)

// ErrNoPlayableVariant is returned when extraction succeeded but produced
// no variant with both a video track and a resolvable origin URL.
var ErrNoPlayableVariant = errors.New("no playable variant")

// Select picks one variant for the requested quality.
//
// Eligible variants have a video track and a non-empty origin URL. For
// best/worst the eligible set is ordered by descending/ascending height;
// for a literal height target by ascending distance to the target. All
// sorts are stable: ties keep input order.
func Select(variants []types.Variant, q types.Quality) (types.Variant, error) {
	return selectWhere(variants, q, func(v types.Variant) bool { return v.Playable() })
}

// SelectHLS is Select restricted to segmented-HLS variants.
func SelectHLS(variants []types.Variant, q types.Quality) (types.Variant, error) {
	return selectWhere(variants, q, func(v types.Variant) bool {
		return v.Playable() && v.Protocol == types.ProtocolHLS
	})
}

func selectWhere(variants []types.Variant, q types.Quality, eligible func(types.Variant) bool) (types.Variant, error) {
	candidates := make([]types.Variant, 0, len(variants))
	for _, v := range variants {
		if eligible(v) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return types.Variant{}, ErrNoPlayableVariant
	}

	switch q.Kind {
	case types.QualityWorst:
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Height < candidates[j].Height
		})
	case types.QualityHeight:
		sort.SliceStable(candidates, func(i, j int) bool {
			return heightDistance(candidates[i], q.Height) < heightDistance(candidates[j], q.Height)
		})
	default:
		// best (and master, resolved by the caller before reaching here)
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].Height > candidates[j].Height
		})
	}

	return candidates[0], nil
}

func heightDistance(v types.Variant, target int) int {
	d := v.Height - target
	if d < 0 {
		return -d
	}
	return d
}

// BestPerHeight deduplicates video-bearing variants by height, keeping for
// each distinct height the one with the highest average bitrate, and
// returns them sorted by strictly descending height. This favors quality
// over redundancy when multiple encodes share a resolution.
func BestPerHeight(variants []types.Variant) []types.Variant {
	byHeight := make(map[int]types.Variant)
	for _, v := range variants {
		if !v.Playable() || v.Height == 0 {
			continue
		}
		if cur, ok := byHeight[v.Height]; !ok || v.TBR > cur.TBR {
			byHeight[v.Height] = v
		}
	}

	out := make([]types.Variant, 0, len(byHeight))
	for _, v := range byHeight {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Height > out[j].Height })
	return out
}
