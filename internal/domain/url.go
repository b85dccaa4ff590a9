package domain

import (
	"fmt"
	"regexp"
	"strings"
)

var youtubeURLPattern = regexp.MustCompile(`^(https?://)?((www|m)\.)?(youtube\.com/(watch\?v=|shorts/)|youtu\.be/)([^&?/\s]{11})`)

// ValidateVideoURL checks that a URL points at a single YouTube video and
// returns its 11-character video ID
func ValidateVideoURL(url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", fmt.Errorf("%w: empty URL", ErrInvalidURL)
	}
	m := youtubeURLPattern.FindStringSubmatch(url)
	if m == nil {
		return "", fmt.Errorf("%w: %s", ErrInvalidURL, url)
	}
	return m[6], nil
}

// IsValidVideoURL reports whether ValidateVideoURL accepts url
func IsValidVideoURL(url string) bool {
	_, err := ValidateVideoURL(url)
	return err == nil
}
