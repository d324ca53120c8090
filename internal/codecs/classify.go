package codecs

import "media-inspector/internal/probe"

// Verdict is the compatibility of one file against a Config.
type Verdict struct {
	AudioProblematic bool   `json:"primary_audio_problematic"`
	VideoProblematic bool   `json:"video_problematic"`
	AudioCodec       string `json:"primary_audio_codec,omitempty"`
	VideoCodec       string `json:"video_codec,omitempty"`
	NeedsRemux       bool   `json:"needs_remux"`
}

// Issues lists the offending codec names, audio first.
func (v Verdict) Issues() []string {
	issues := make([]string, 0, 2)
	if v.AudioProblematic {
		issues = append(issues, v.AudioCodec)
	}
	if v.VideoProblematic {
		issues = append(issues, v.VideoCodec)
	}
	return issues
}

// Classify checks the primary (first) audio track and the video stream of r
// against cfg. Names must match exactly. Missing streams and empty codec
// names never match, so unknown files are reported as compatible.
func Classify(r *probe.Result, cfg Config) Verdict {
	var v Verdict
	if r == nil {
		return v
	}

	if audio := r.PrimaryAudio(); audio != nil {
		v.AudioCodec = audio.Codec
		v.AudioProblematic = contains(cfg.ProblematicCodecs.Audio, audio.Codec)
	}
	if r.Video != nil {
		v.VideoCodec = r.Video.Codec
		v.VideoProblematic = contains(cfg.ProblematicCodecs.Video, r.Video.Codec)
	}

	v.NeedsRemux = v.AudioProblematic || v.VideoProblematic
	return v
}

// IsAudioProblematic reports whether a single audio codec is configured as problematic.
func IsAudioProblematic(codec string, cfg Config) bool {
	return contains(cfg.ProblematicCodecs.Audio, codec)
}

// IsVideoProblematic reports whether a video codec is configured as problematic.
func IsVideoProblematic(codec string, cfg Config) bool {
	return contains(cfg.ProblematicCodecs.Video, codec)
}

func contains(list []string, codec string) bool {
	if codec == "" {
		return false
	}
	for _, name := range list {
		if name == codec {
			return true
		}
	}
	return false
}
