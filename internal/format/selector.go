// Package format picks which remote stream variants to ask the fetcher for.
package format

import (
	"sort"
	"strings"
)

// Kind classifies a stream variant
type Kind int

const (
	KindUnknown Kind = iota
	KindVideoOnly
	KindAudioOnly
	KindMuxed
)

// Mode is the selection strategy requested by the caller
type Mode string

const (
	ModeOriginal Mode = "original" // best overall, original audio language
	ModePlanned  Mode = "planned"  // target height and audio language
)

// Variant is one stream the remote site offers
type Variant struct {
	ID                 string
	Ext                string
	VCodec             string
	ACodec             string
	Height             int
	Language           string
	LanguagePreference int // higher means closer to the original track
	Bitrate            float64
	DynamicRange       string
}

// Kind classifies the variant from its codecs
func (v Variant) Kind() Kind {
	hasVideo := v.VCodec != "" && v.VCodec != "none"
	hasAudio := v.ACodec != "" && v.ACodec != "none"
	switch {
	case hasVideo && hasAudio:
		return KindMuxed
	case hasVideo:
		return KindVideoOnly
	case hasAudio:
		return KindAudioOnly
	default:
		return KindUnknown
	}
}

// Request describes what the caller wants
type Request struct {
	Mode      Mode
	Height    int    // planned mode only, 0 means no cap
	Language  string // planned mode only
	UserAgent string // coarse client hint
}

// Selection is the outcome of Select
type Selection struct {
	VideoID string
	AudioID string
	MuxedID string
	Height  int
}

// FormatID renders the selection as a fetcher format selector
func (s Selection) FormatID() string {
	if s.MuxedID != "" {
		return s.MuxedID
	}
	return s.VideoID + "+" + s.AudioID
}

// IsPair reports whether the selection joins a video-only and an audio-only stream
func (s Selection) IsPair() bool {
	return s.MuxedID == ""
}

// Select deterministically picks a variant or a video+audio pair.
// The boolean is false when the catalog has nothing usable.
func Select(variants []Variant, req Request) (Selection, bool) {
	var videos, audios, muxed []Variant
	for _, v := range variants {
		switch v.Kind() {
		case KindVideoOnly:
			videos = append(videos, v)
		case KindAudioOnly:
			audios = append(audios, v)
		case KindMuxed:
			muxed = append(muxed, v)
		}
	}

	s := newScorer(req)
	bestAudio, hasAudio := s.bestAudio(audios)

	// heights run tallest first, so the first height with a selection is the best one
	for _, h := range candidateHeights(videos, muxed, req) {
		if sel, ok := selectAtHeight(h, videos, muxed, bestAudio, hasAudio, s); ok {
			return sel, true
		}
	}

	if v, ok := s.bestVideo(videos); ok && hasAudio {
		return Selection{VideoID: v.ID, AudioID: bestAudio.ID, Height: v.Height}, true
	}
	if m, ok := s.bestMuxed(muxed); ok {
		return Selection{MuxedID: m.ID, Height: m.Height}, true
	}
	return Selection{}, false
}

func candidateHeights(videos, muxed []Variant, req Request) []int {
	seen := make(map[int]bool)
	var heights []int
	add := func(vs []Variant) {
		for _, v := range vs {
			if v.Height <= 0 || seen[v.Height] {
				continue
			}
			if req.Mode == ModePlanned && req.Height > 0 && v.Height > req.Height {
				continue
			}
			seen[v.Height] = true
			heights = append(heights, v.Height)
		}
	}
	add(videos)
	add(muxed)
	sort.Sort(sort.Reverse(sort.IntSlice(heights)))
	return heights
}

func selectAtHeight(h int, videos, muxed []Variant, audio Variant, hasAudio bool, s scorer) (Selection, bool) {
	if hasAudio {
		if v, ok := s.bestVideo(atHeight(videos, h)); ok {
			return Selection{VideoID: v.ID, AudioID: audio.ID, Height: h}, true
		}
	}
	if m, ok := s.bestMuxed(atHeight(muxed, h)); ok {
		return Selection{MuxedID: m.ID, Height: h}, true
	}
	return Selection{}, false
}

func atHeight(vs []Variant, h int) []Variant {
	var out []Variant
	for _, v := range vs {
		if v.Height == h {
			out = append(out, v)
		}
	}
	return out
}

type scorer struct {
	req         Request
	constrained bool
}

func newScorer(req Request) scorer {
	return scorer{req: req, constrained: IsConstrainedClient(req.UserAgent)}
}

// IsConstrainedClient reports whether the user agent belongs to a mobile client
// known to struggle with VP9/AV1 and Opus playback.
func IsConstrainedClient(userAgent string) bool {
	ua := strings.ToLower(userAgent)
	for _, marker := range []string{"iphone", "ipad", "ipod", "android", "mobile"} {
		if strings.Contains(ua, marker) {
			return true
		}
	}
	return false
}

func (s scorer) videoScore(v Variant) int {
	score := 0
	codec := strings.ToLower(v.VCodec)
	if strings.HasPrefix(codec, "avc") || strings.HasPrefix(codec, "h264") {
		score += 30
	}
	if strings.EqualFold(v.Ext, "mp4") {
		score += 20
	}
	if dr := strings.ToUpper(v.DynamicRange); dr != "" && dr != "SDR" {
		score -= 50
	}
	if s.constrained && (strings.HasPrefix(codec, "vp9") || strings.HasPrefix(codec, "vp09") || strings.HasPrefix(codec, "av01")) {
		score -= 40
	}
	return score
}

func (s scorer) audioScore(v Variant) int {
	// the requested language outranks everything, then the original track
	score := 10 * v.LanguagePreference
	if s.req.Mode == ModePlanned && s.req.Language != "" && languageMatches(v.Language, s.req.Language) {
		score += 1000
	}
	codec := strings.ToLower(v.ACodec)
	if strings.HasPrefix(codec, "mp4a") || strings.EqualFold(v.Ext, "m4a") {
		score += 20
	}
	if s.constrained && strings.HasPrefix(codec, "opus") {
		score -= 40
	}
	return score
}

func (s scorer) bestVideo(vs []Variant) (Variant, bool) {
	return pick(vs, s.videoScore)
}

func (s scorer) bestAudio(vs []Variant) (Variant, bool) {
	return pick(vs, s.audioScore)
}

func (s scorer) bestMuxed(vs []Variant) (Variant, bool) {
	return pick(vs, func(v Variant) int {
		return s.videoScore(v) + s.audioScore(v)
	})
}

// pick returns the highest scoring variant; declared bitrate breaks ties, then catalog order
func pick(vs []Variant, score func(Variant) int) (Variant, bool) {
	if len(vs) == 0 {
		return Variant{}, false
	}
	best := vs[0]
	bestScore := score(best)
	for _, v := range vs[1:] {
		sc := score(v)
		if sc > bestScore || (sc == bestScore && v.Bitrate > best.Bitrate) {
			best, bestScore = v, sc
		}
	}
	return best, true
}

func languageMatches(have, want string) bool {
	have = strings.ToLower(have)
	want = strings.ToLower(want)
	if have == "" || want == "" {
		return false
	}
	return have == want || strings.HasPrefix(have, want+"-") || strings.HasPrefix(want, have+"-")
}

// Catalog is what the remote site advertises for one media URL
type Catalog struct {
	Title     string
	Thumbnail string
	Variants  []Variant
}
