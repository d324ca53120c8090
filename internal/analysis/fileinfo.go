package analysis

import (
	"media-inspector/internal/codecs"
	"media-inspector/internal/probe"
)

// FileInfo is the display form of one probed file.
type FileInfo struct {
	Duration       string               `json:"duration"`
	Size           string               `json:"size"`
	Bitrate        string               `json:"bitrate,omitempty"`
	Container      string               `json:"container"`
	Video          VideoInfo            `json:"video"`
	AudioTracks    []AudioTrackInfo     `json:"audio_tracks"`
	SubtitleTracks []SubtitleTrackInfo  `json:"subtitle_tracks"`
	Chapters       int                  `json:"chapters"`
	Compatibility  CompatibilitySummary `json:"compatibility"`
}

// VideoInfo describes the video stream. All fields are empty for files
// without one.
type VideoInfo struct {
	Codec         string `json:"codec,omitempty"`
	Resolution    string `json:"resolution,omitempty"`
	Framerate     string `json:"framerate,omitempty"`
	Bitrate       string `json:"bitrate,omitempty"`
	Profile       string `json:"profile,omitempty"`
	PixelFormat   string `json:"pixel_format,omitempty"`
	AspectRatio   string `json:"aspect_ratio,omitempty"`
	IsProblematic bool   `json:"is_problematic"`
}

type AudioTrackInfo struct {
	Index         int    `json:"index"`
	Codec         string `json:"codec"`
	Channels      int    `json:"channels"`
	ChannelLayout string `json:"channel_layout,omitempty"`
	SampleRate    string `json:"sample_rate,omitempty"`
	Bitrate       string `json:"bitrate,omitempty"`
	Language      string `json:"language"`
	Title         string `json:"title"`
	Default       bool   `json:"default"`
	IsProblematic bool   `json:"is_problematic"`
}

// SubtitleTrackInfo is an embedded or sidecar subtitle. Sidecar files have
// External set and Index -1.
type SubtitleTrackInfo struct {
	Index    int    `json:"index"`
	Codec    string `json:"codec"`
	Language string `json:"language"`
	Title    string `json:"title"`
	Forced   bool   `json:"forced"`
	Default  bool   `json:"default"`
	External bool   `json:"external"`
}

// CompatibilitySummary is the Verdict plus per-track counts.
type CompatibilitySummary struct {
	codecs.Verdict
	ProblematicTrackCount int `json:"problematic_track_count"`
	TotalAudioTracks      int `json:"total_audio_tracks"`
}

// Describe formats r for display and classifies it against cfg. Sidecar
// subtitles are appended after the embedded tracks.
func Describe(r *probe.Result, cfg codecs.Config, sidecars []probe.SubtitleTrack) *FileInfo {
	info := &FileInfo{
		Duration:       probe.FormatDuration(r.Duration),
		Size:           probe.HumanSize(r.Size),
		Bitrate:        probe.FormatBitrate(r.BitRate),
		Container:      probe.DisplayCodec(r.Container),
		AudioTracks:    make([]AudioTrackInfo, 0, len(r.Audio)),
		SubtitleTracks: make([]SubtitleTrackInfo, 0, len(r.Subtitles)+len(sidecars)),
		Chapters:       r.Chapters,
	}

	if v := r.Video; v != nil {
		info.Video = VideoInfo{
			Codec:         probe.DisplayCodec(v.Codec),
			Resolution:    probe.ResolutionLabel(v.Width, v.Height),
			Framerate:     probe.FormatFrameRate(v.FrameRate),
			Bitrate:       probe.FormatBitrate(v.BitRate),
			Profile:       v.Profile,
			PixelFormat:   v.PixelFormat,
			AspectRatio:   v.AspectRatio,
			IsProblematic: codecs.IsVideoProblematic(v.Codec, cfg),
		}
	}

	problematicTracks := 0
	for _, a := range r.Audio {
		track := AudioTrackInfo{
			Index:         a.Index,
			Codec:         probe.DisplayCodec(a.Codec),
			Channels:      a.Channels,
			ChannelLayout: probe.ChannelLayoutLabel(a.ChannelLayout, a.Channels),
			SampleRate:    probe.FormatSampleRate(a.SampleRate),
			Bitrate:       probe.FormatBitrate(a.BitRate),
			Language:      orUnknown(a.Language),
			Title:         a.Title,
			Default:       a.Default,
			IsProblematic: codecs.IsAudioProblematic(a.Codec, cfg),
		}
		if track.IsProblematic {
			problematicTracks++
		}
		info.AudioTracks = append(info.AudioTracks, track)
	}

	for _, s := range r.Subtitles {
		info.SubtitleTracks = append(info.SubtitleTracks, subtitleInfo(s))
	}
	for _, s := range sidecars {
		s.Index = -1
		s.External = true
		info.SubtitleTracks = append(info.SubtitleTracks, subtitleInfo(s))
	}

	info.Compatibility = CompatibilitySummary{
		Verdict:               codecs.Classify(r, cfg),
		ProblematicTrackCount: problematicTracks,
		TotalAudioTracks:      len(r.Audio),
	}
	return info
}

func subtitleInfo(s probe.SubtitleTrack) SubtitleTrackInfo {
	return SubtitleTrackInfo{
		Index:    s.Index,
		Codec:    probe.DisplayCodec(s.Codec),
		Language: orUnknown(s.Language),
		Title:    s.Title,
		Forced:   s.Forced,
		Default:  s.Default,
		External: s.External,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
