package stt

import (
	"bytes"
	"fmt"
	"strings"

	"clinicassist-ai/internal/service"
)

// supportedFormats are the audio containers the speech server accepts.
var supportedFormats = map[string]bool{
	"wav":  true,
	"mp3":  true,
	"flac": true,
	"ogg":  true,
}

// detectFormat resolves the clip's container format, preferring the declared
// encoding and falling back to magic-byte sniffing. Unknown or unsupported
// formats are an input error, not a transcription error.
func detectFormat(clip Clip) (string, error) {
	if clip.Encoding != "" {
		format := strings.ToLower(strings.TrimPrefix(clip.Encoding, "."))
		if !supportedFormats[format] {
			return "", fmt.Errorf("%w: unsupported audio encoding %q", service.ErrInvalidInput, clip.Encoding)
		}
		return format, nil
	}

	format := sniffFormat(clip.Data)
	if format == "" {
		return "", fmt.Errorf("%w: unrecognized audio format", service.ErrInvalidInput)
	}
	return format, nil
}

// sniffFormat identifies an audio container from its magic bytes.
// Returns "" if the container is not recognized.
func sniffFormat(data []byte) string {
	switch {
	case len(data) >= 12 && bytes.Equal(data[:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return "wav"
	case len(data) >= 4 && bytes.Equal(data[:4], []byte("fLaC")):
		return "flac"
	case len(data) >= 4 && bytes.Equal(data[:4], []byte("OggS")):
		return "ogg"
	case len(data) >= 3 && bytes.Equal(data[:3], []byte("ID3")):
		return "mp3"
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG audio frame sync without an ID3 tag.
		return "mp3"
	default:
		return ""
	}
}
