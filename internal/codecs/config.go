package codecs

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ConfigVersion is written into newly created configurations.
const ConfigVersion = "1.0"

// Validation errors returned by ParseConfig.
var (
	ErrInvalidFormat      = errors.New("invalid config format")
	ErrMissingSection     = errors.New("missing problematic_codecs section")
	ErrInvalidAudioFormat = errors.New("invalid audio codecs format")
	ErrInvalidVideoFormat = errors.New("invalid video codecs format")
)

// Config holds the problematic codec lists.
type Config struct {
	ProblematicCodecs Lists  `json:"problematic_codecs" yaml:"problematic_codecs"`
	Version           string `json:"version,omitempty" yaml:"version,omitempty"`
}

// Lists are codec names as reported by ffprobe (codec_name).
type Lists struct {
	Audio []string `json:"audio" yaml:"audio"`
	Video []string `json:"video" yaml:"video"`
}

// Defaults returns the built-in configuration: lossless and high-bitrate
// audio formats that common streaming clients cannot direct-play.
func Defaults() Config {
	return Config{
		ProblematicCodecs: Lists{
			Audio: []string{"dts", "dts-hd", "truehd", "flac", "pcm_s16le", "pcm_s24le"},
			Video: []string{},
		},
		Version: ConfigVersion,
	}
}

// Common codec names offered as suggestions when editing the configuration.
var (
	CommonAudio = []string{
		"aac", "ac3", "eac3", "dts", "dts-hd", "truehd",
		"flac", "mp3", "pcm_s16le", "pcm_s24le", "opus", "vorbis",
	}
	CommonVideo = []string{
		"h264", "h265", "hevc", "av1", "vp8", "vp9", "mpeg2", "mpeg4",
	}
)

// Normalize trims codec names, drops empty ones and removes duplicates while
// keeping the first occurrence. Case is preserved: comparisons are exact.
func (c Config) Normalize() Config {
	out := Config{
		ProblematicCodecs: Lists{
			Audio: normalizeList(c.ProblematicCodecs.Audio),
			Video: normalizeList(c.ProblematicCodecs.Video),
		},
		Version: c.Version,
	}
	if out.Version == "" {
		out.Version = ConfigVersion
	}
	return out
}

func normalizeList(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// ParseConfig decodes and validates a configuration document. Missing audio
// or video lists are treated as empty; lists of anything but strings are
// rejected.
func ParseConfig(data []byte) (Config, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return Config{}, ErrInvalidFormat
	}

	section, ok := raw["problematic_codecs"]
	if !ok {
		return Config{}, ErrMissingSection
	}

	var lists map[string]json.RawMessage
	if err := json.Unmarshal(section, &lists); err != nil || lists == nil {
		return Config{}, ErrMissingSection
	}

	var cfg Config
	if audio, ok := lists["audio"]; ok {
		if err := json.Unmarshal(audio, &cfg.ProblematicCodecs.Audio); err != nil {
			return Config{}, ErrInvalidAudioFormat
		}
	}
	if video, ok := lists["video"]; ok {
		if err := json.Unmarshal(video, &cfg.ProblematicCodecs.Video); err != nil {
			return Config{}, ErrInvalidVideoFormat
		}
	}
	if version, ok := raw["version"]; ok {
		if err := json.Unmarshal(version, &cfg.Version); err != nil {
			return Config{}, fmt.Errorf("%w: version must be a string", ErrInvalidFormat)
		}
	}

	return cfg.Normalize(), nil
}
