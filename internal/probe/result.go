package probe

import (
	"strconv"
	"strings"
)

// Result is the metadata snapshot of one media file.
type Result struct {
	Duration  float64         `json:"duration"`
	Size      int64           `json:"size"`
	BitRate   int64           `json:"bit_rate"`
	Container string          `json:"container"`
	Video     *VideoStream    `json:"video,omitempty"`
	Audio     []AudioTrack    `json:"audio_tracks"`
	Subtitles []SubtitleTrack `json:"subtitle_tracks"`
	Chapters  int             `json:"chapters"`
}

// VideoStream describes the first video stream of a file.
type VideoStream struct {
	Codec       string  `json:"codec"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	FrameRate   float64 `json:"frame_rate"`
	BitRate     int64   `json:"bit_rate"`
	Profile     string  `json:"profile,omitempty"`
	PixelFormat string  `json:"pixel_format,omitempty"`
	AspectRatio string  `json:"aspect_ratio,omitempty"`
}

// AudioTrack describes one audio stream. Index is the ffprobe stream index.
type AudioTrack struct {
	Index         int    `json:"index"`
	Codec         string `json:"codec"`
	Channels      int    `json:"channels"`
	ChannelLayout string `json:"channel_layout,omitempty"`
	SampleRate    int    `json:"sample_rate"`
	BitRate       int64  `json:"bit_rate"`
	Language      string `json:"language,omitempty"`
	Title         string `json:"title,omitempty"`
	Default       bool   `json:"default"`
}

// SubtitleTrack describes an embedded subtitle stream or a sidecar file.
// Sidecar files have External set and Index -1.
type SubtitleTrack struct {
	Index    int    `json:"index"`
	Codec    string `json:"codec"`
	Language string `json:"language,omitempty"`
	Title    string `json:"title,omitempty"`
	Forced   bool   `json:"forced"`
	Default  bool   `json:"default"`
	External bool   `json:"external"`
}

// PrimaryAudio returns the first audio track, or nil for files without audio.
func (r *Result) PrimaryAudio() *AudioTrack {
	if r == nil || len(r.Audio) == 0 {
		return nil
	}
	return &r.Audio[0]
}

type ffprobeOutput struct {
	Format   ffprobeFormat    `json:"format"`
	Streams  []ffprobeStream  `json:"streams"`
	Chapters []ffprobeChapter `json:"chapters"`
}

type ffprobeFormat struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
}

type ffprobeStream struct {
	Index              int               `json:"index"`
	CodecType          string            `json:"codec_type"`
	CodecName          string            `json:"codec_name"`
	Profile            string            `json:"profile"`
	Width              int               `json:"width"`
	Height             int               `json:"height"`
	RFrameRate         string            `json:"r_frame_rate"`
	PixFmt             string            `json:"pix_fmt"`
	DisplayAspectRatio string            `json:"display_aspect_ratio"`
	BitRate            string            `json:"bit_rate"`
	Channels           int               `json:"channels"`
	ChannelLayout      string            `json:"channel_layout"`
	SampleRate         string            `json:"sample_rate"`
	Tags               map[string]string `json:"tags"`
	Disposition        disposition       `json:"disposition"`
}

type disposition struct {
	Default int `json:"default"`
	Forced  int `json:"forced"`
}

type ffprobeChapter struct {
	ID int64 `json:"id"`
}

func (o *ffprobeOutput) toResult() *Result {
	r := &Result{
		Duration:  parseFloat(o.Format.Duration),
		Size:      parseInt(o.Format.Size),
		BitRate:   parseInt(o.Format.BitRate),
		Container: o.Format.FormatName,
		Audio:     []AudioTrack{},
		Subtitles: []SubtitleTrack{},
		Chapters:  len(o.Chapters),
	}

	for _, s := range o.Streams {
		switch s.CodecType {
		case "video":
			// Only the first video stream counts; later ones are usually cover art.
			if r.Video != nil {
				continue
			}
			r.Video = &VideoStream{
				Codec:       s.CodecName,
				Width:       s.Width,
				Height:      s.Height,
				FrameRate:   parseRatio(s.RFrameRate),
				BitRate:     parseInt(s.BitRate),
				Profile:     s.Profile,
				PixelFormat: s.PixFmt,
				AspectRatio: s.DisplayAspectRatio,
			}
		case "audio":
			r.Audio = append(r.Audio, AudioTrack{
				Index:         s.Index,
				Codec:         s.CodecName,
				Channels:      s.Channels,
				ChannelLayout: s.ChannelLayout,
				SampleRate:    int(parseInt(s.SampleRate)),
				BitRate:       parseInt(s.BitRate),
				Language:      tag(s.Tags, "language"),
				Title:         tag(s.Tags, "title"),
				Default:       s.Disposition.Default == 1,
			})
		case "subtitle":
			r.Subtitles = append(r.Subtitles, SubtitleTrack{
				Index:    s.Index,
				Codec:    s.CodecName,
				Language: tag(s.Tags, "language"),
				Title:    tag(s.Tags, "title"),
				Forced:   s.Disposition.Forced == 1,
				Default:  s.Disposition.Default == 1,
			})
		}
	}

	return r
}

// tag looks up a stream tag. Matroska writes lower-case keys, some muxers
// upper-case ones.
func tag(tags map[string]string, key string) string {
	if v, ok := tags[key]; ok {
		return v
	}
	return tags[strings.ToUpper(key)]
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func parseInt(s string) int64 {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	// Some containers report fractional sizes or bitrates
	return int64(parseFloat(s))
}

// parseRatio parses ffprobe rationals such as "24000/1001".
func parseRatio(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	if !ok {
		return parseFloat(s)
	}
	d := parseFloat(den)
	if d == 0 {
		return 0
	}
	return parseFloat(num) / d
}
