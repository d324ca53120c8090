package probe

import (
	"fmt"
	"strings"
)

// HumanSize formats a byte count with one decimal, e.g. "1.5 GB".
func HumanSize(size int64) string {
	value := float64(size)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if value < 1024 {
			return fmt.Sprintf("%.1f %s", value, unit)
		}
		value /= 1024
	}
	return fmt.Sprintf("%.1f TB", value)
}

// FormatDuration formats seconds as HH:MM:SS. Hours are not capped at 24.
func FormatDuration(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	total := int64(seconds)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total%3600)/60, total%60)
}

// FormatBitrate formats bits per second as whole kbps. Zero means unknown.
func FormatBitrate(bps int64) string {
	if bps <= 0 {
		return ""
	}
	return fmt.Sprintf("%.0f kbps", float64(bps)/1000)
}

// FormatFrameRate formats frames per second with two decimals.
func FormatFrameRate(fps float64) string {
	if fps <= 0 {
		return ""
	}
	return fmt.Sprintf("%.2f fps", fps)
}

// FormatSampleRate formats a sample rate in kHz with one decimal.
func FormatSampleRate(hz int) string {
	if hz <= 0 {
		return ""
	}
	return fmt.Sprintf("%.1f kHz", float64(hz)/1000)
}

// ResolutionLabel formats dimensions with a category suffix, e.g.
// "1920×1080 (1080p)". Heights below 480 get no suffix.
func ResolutionLabel(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}
	label := fmt.Sprintf("%d×%d", width, height)
	switch {
	case height >= 2160:
		return label + " (4K)"
	case height >= 1440:
		return label + " (1440p)"
	case height >= 1080:
		return label + " (1080p)"
	case height >= 720:
		return label + " (720p)"
	case height >= 480:
		return label + " (480p)"
	}
	return label
}

// ChannelLayoutLabel prefers the layout reported by ffprobe and falls back to
// a name derived from the channel count.
func ChannelLayoutLabel(layout string, channels int) string {
	if layout != "" {
		return layout
	}
	switch channels {
	case 0:
		return ""
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	case 6:
		return "5.1"
	case 8:
		return "7.1"
	}
	return fmt.Sprintf("%d channels", channels)
}

// DisplayCodec upper-cases a codec or container name for display.
func DisplayCodec(name string) string {
	if name == "" {
		return "UNKNOWN"
	}
	return strings.ToUpper(name)
}
