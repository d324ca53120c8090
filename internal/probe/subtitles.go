package probe

import (
	"path/filepath"
	"strings"

	"media-inspector/internal/filesystem"
	"media-inspector/internal/mediatypes"
)

// sidecarLanguages maps language tokens found in sidecar file names to the
// reported language code.
var sidecarLanguages = map[string]string{
	"en": "en", "eng": "en", "english": "en",
	"es": "es", "spa": "es", "spanish": "es",
	"fr": "fr", "fre": "fr", "fra": "fr", "french": "fr",
	"de": "de", "ger": "de", "deu": "de", "german": "de",
	"it": "it", "ita": "it", "italian": "it",
	"pt": "pt", "por": "pt", "portuguese": "pt",
	"ja": "ja", "jpn": "ja", "japanese": "ja",
	"ko": "ko", "kor": "ko", "korean": "ko",
	"zh": "zh", "chi": "zh", "zho": "zh", "chinese": "zh",
}

// FindSidecarSubtitles lists subtitle files next to videoPath whose names
// start with the video's base name (case-insensitive), e.g. "Movie.en.srt"
// for "Movie.mkv". Unreadable directories yield no tracks.
func FindSidecarSubtitles(videoPath string) []SubtitleTrack {
	dir := filepath.Dir(videoPath)
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(videoPath), filepath.Ext(videoPath)))

	entries, err := filesystem.ReadDirWithRetry(dir, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil
	}

	var tracks []SubtitleTrack
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		lower := strings.ToLower(name)
		if !mediatypes.IsSubtitleFile(name) || !strings.HasPrefix(lower, base) {
			continue
		}

		ext := filepath.Ext(name)
		tracks = append(tracks, SubtitleTrack{
			Index:    -1,
			Codec:    strings.ToUpper(strings.TrimPrefix(ext, ".")),
			Language: sidecarLanguage(strings.TrimSuffix(lower[len(base):], strings.ToLower(ext))),
			Title:    name,
			External: true,
		})
	}
	return tracks
}

// sidecarLanguage finds the first language token in the part of a sidecar
// name between the video base name and the extension, e.g. ".en.forced".
func sidecarLanguage(suffix string) string {
	tokens := strings.FieldsFunc(suffix, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == ' ' || r == '[' || r == ']' || r == '(' || r == ')'
	})
	for _, token := range tokens {
		if lang, ok := sidecarLanguages[token]; ok {
			return lang
		}
	}
	return ""
}
