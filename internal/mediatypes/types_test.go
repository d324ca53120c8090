package mediatypes

import (
	"testing"
)

func TestIsVideoFile(t *testing.T) {
	tests := []struct {
		name string
		file string
		want bool
	}{
		{name: "MKV video", file: "movie.mkv", want: true},
		{name: "Upper-case extension", file: "MOVIE.MP4", want: true},
		{name: "MPEG-2 program", file: "clip.mpeg", want: true},
		{name: "3GP", file: "phone.3gp", want: true},
		{name: "Subtitle is not video", file: "movie.srt", want: false},
		{name: "Image is not video", file: "poster.jpg", want: false},
		{name: "No extension", file: "README", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsVideoFile(tt.file); got != tt.want {
				t.Errorf("IsVideoFile(%q) = %v, want %v", tt.file, got, tt.want)
			}
		})
	}
}

func TestIsSubtitleFile(t *testing.T) {
	for _, name := range []string{"a.srt", "a.en.ASS", "a.vtt", "a.idx"} {
		if !IsSubtitleFile(name) {
			t.Errorf("IsSubtitleFile(%q) = false, want true", name)
		}
	}
	if IsSubtitleFile("a.mkv") {
		t.Error("IsSubtitleFile(a.mkv) = true, want false")
	}
}

func TestIsSkippedFolder(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{".hidden", true},
		{"System Volume Information", true},
		{"$RECYCLE.BIN", true},
		{"Movies", false},
		{"TV Shows", false},
	}

	for _, tt := range tests {
		if got := IsSkippedFolder(tt.name); got != tt.want {
			t.Errorf("IsSkippedFolder(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestGetMimeType(t *testing.T) {
	if got := GetMimeType(".mkv"); got != "video/x-matroska" {
		t.Errorf("GetMimeType(.mkv) = %q", got)
	}
	if got := GetMimeType(".xyz"); got != "application/octet-stream" {
		t.Errorf("GetMimeType(.xyz) = %q", got)
	}
}
