package validation

import (
	"regexp"
	"strings"
)

var (
	// slackLinkPattern matches Slack link markup with a label: <url|label>
	slackLinkPattern = regexp.MustCompile(`<([^<>|\s]+)\|[^<>]*>`)

	// urlPattern matches http(s) URLs, and scheme-less links on a supported
	// domain that start a token. Group 1 holds the scheme-less link.
	urlPattern = regexp.MustCompile(
		`https?://[^\s<>|]+` +
			`|(?:^|[\s(<])((?:[\w-]+\.)*(?:instagram\.com|tiktok\.com|youtube\.com|youtu\.be)/[^\s<>|]*)`)
)

// ExtractURLs returns every URL found in a message, in order of appearance.
// Repeated URLs are returned once per occurrence.
func ExtractURLs(text string) []string {
	text = slackLinkPattern.ReplaceAllString(text, "<$1>")

	matches := urlPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	urls := make([]string, 0, len(matches))
	for _, groups := range matches {
		match := groups[0]
		if groups[1] != "" {
			match = groups[1]
		}
		match = strings.Trim(match, "<>")
		if match != "" {
			urls = append(urls, match)
		}
	}
	return urls
}
