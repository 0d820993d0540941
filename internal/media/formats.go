package media

import (
	"path/filepath"
	"strings"
)

// SupportedExtensions are the upload formats accepted for transcription.
var SupportedExtensions = []string{"mp4", "mp3", "wav", "m4a", "mov", "mkv", "avi"}

// Supported reports whether filename has one of SupportedExtensions,
// compared case-insensitively.
func Supported(filename string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}
