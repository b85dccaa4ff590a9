package domain

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// DefaultFilename is used when a title sanitizes to nothing
const DefaultFilename = "downloaded_video"

const maxFilenameLen = 100

var (
	unsafeFilenameChars = regexp.MustCompile(`[\\/*?:"<>|]`)
	whitespaceRun       = regexp.MustCompile(` +`)
)

// SanitizeFilename derives a filesystem-safe base name from a video title.
// The result is never empty and never longer than 100 characters.
func SanitizeFilename(title string) string {
	s := unsafeFilenameChars.ReplaceAllString(title, "")
	s = strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	s = strings.TrimSpace(s)
	s = whitespaceRun.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_.- ")

	if r := []rune(s); len(r) > maxFilenameLen {
		s = strings.TrimRight(string(r[:maxFilenameLen]), "_.- ")
	}
	if s == "" {
		return DefaultFilename
	}
	return s
}

// ProgressiveFileName names the artifact of a progressive download
func ProgressiveFileName(base string, stream StreamOption) string {
	tag := stream.Resolution
	if tag == "" {
		tag = "prog"
	}
	return fmt.Sprintf("%s_%s.mp4", base, tag)
}

// MergedFileName names the artifact of a merged video+audio download
func MergedFileName(base string, video, audio StreamOption) string {
	vidTag := video.Resolution
	if vidTag == "" {
		vidTag = "vid"
	}
	audTag := audio.ABR
	if audTag == "" {
		audTag = "aud"
	}
	return fmt.Sprintf("%s_%s_%s.mp4", base, vidTag, audTag)
}

// TempFileNames returns the scratch names for the two halves of a merged download
func TempFileNames(base string, audio StreamOption) (videoName, audioName string) {
	return base + "_vid.mp4", base + "_aud." + audio.AudioExtension()
}
