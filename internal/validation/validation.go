package validation

import (
	"net/url"
	"strings"

	"scrapebot/internal/errors"
	"scrapebot/internal/models"
)

// platformDomains maps host substrings to the platform they identify.
// The domains never overlap as substrings, so at most one entry matches.
var platformDomains = []struct {
	domain   string
	platform models.Platform
}{
	{"instagram.com", models.PlatformInstagram},
	{"tiktok.com", models.PlatformTikTok},
	{"youtube.com", models.PlatformYouTube},
	{"youtu.be", models.PlatformYouTube},
}

// Result is a URL accepted for the queue
type Result struct {
	URL      string
	Platform models.Platform
}

// ValidateURL normalizes a raw token and classifies it by platform.
// Rejections are *errors.AppError values whose user message is shown verbatim.
func ValidateURL(raw string) (Result, error) {
	normalized := raw
	if !strings.HasPrefix(normalized, "http://") && !strings.HasPrefix(normalized, "https://") {
		normalized = "https://" + normalized
	}

	u, err := url.Parse(normalized)
	if err != nil {
		return Result{}, errors.NewInvalidFormatError(raw, unwrapURLError(err))
	}

	// Userinfo is not part of u.Host, so "instagram.com@evil.com" classifies as evil.com.
	platform, ok := DetectPlatform(u.Host)
	if !ok {
		return Result{}, errors.NewUnsupportedPlatformError(normalized, u.Host)
	}

	if u.Path == "" || u.Path == "/" {
		return Result{}, errors.NewInvalidPathError(normalized, platform.String())
	}

	return Result{URL: normalized, Platform: platform}, nil
}

// DetectPlatform classifies a host by case-insensitive substring match
func DetectPlatform(host string) (models.Platform, bool) {
	host = strings.ToLower(host)
	for _, entry := range platformDomains {
		if strings.Contains(host, entry.domain) {
			return entry.platform, true
		}
	}
	return "", false
}

// unwrapURLError drops the "parse <url>:" prefix net/url adds
func unwrapURLError(err error) error {
	if urlErr, ok := err.(*url.Error); ok && urlErr.Err != nil {
		return urlErr.Err
	}
	return err
}
