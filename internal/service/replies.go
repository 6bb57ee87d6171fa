package service

import (
	"fmt"
	"strings"

	"scrapebot/internal/models"
)

const (
	supportedPlatformsLine = "Supported platforms: Instagram, TikTok, YouTube"
	mentionBatchNote       = "_URLs will be scraped in the next batch run (every ~6 hours)_"
	commandBatchNote       = "_Will be processed in the next batch run (~6 hours)_"

	replyDuplicateReason = "Already exists in database"
	replyAppendReason    = "Failed to add to database"

	commandAppendFailed = "❌ Failed to add URL to database. Please try again."
	commandApology      = "❌ Sorry, something went wrong. Please try again later."
)

// mentionResults accumulates the per-URL lines of one mention reply
type mentionResults struct {
	added  []string
	errors []string
}

func (r *mentionResults) addSuccess(platform models.Platform, url string) {
	r.added = append(r.added, fmt.Sprintf("• %s: %s", platform, url))
}

func (r *mentionResults) addError(raw, reason string) {
	r.errors = append(r.errors, fmt.Sprintf("• %s: %s", raw, reason))
}

// render builds the reply. Sections are omitted when empty and the batch
// note only appears when something was added.
func (r *mentionResults) render(userID string) string {
	var b strings.Builder
	b.WriteString(mention(userID))
	b.WriteString(" URL Processing Results:\n\n")

	if len(r.added) > 0 {
		b.WriteString("✅ *Successfully Added:*\n")
		b.WriteString(strings.Join(r.added, "\n"))
		b.WriteString("\n\n")
	}
	if len(r.errors) > 0 {
		b.WriteString("❌ *Errors:*\n")
		b.WriteString(strings.Join(r.errors, "\n"))
		b.WriteString("\n\n")
	}
	if len(r.added) > 0 {
		b.WriteString(mentionBatchNote)
	}
	return b.String()
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

func mentionNoURLsReply(userID string) string {
	return mention(userID) + " Please include a social media URL in your message.\n" + supportedPlatformsLine
}

func mentionApologyReply(userID string) string {
	return mention(userID) + " Sorry, something went wrong. Please try again later."
}

func commandUsageReply(command string) string {
	return fmt.Sprintf("Please provide a URL: `%s https://instagram.com/username`", command)
}

func commandRejectedReply(reason string) string {
	return "❌ " + reason
}

func commandDuplicateReply(raw string) string {
	return "❌ URL already exists in database: " + raw
}

func commandAddedReply(platform models.Platform, url string) string {
	return fmt.Sprintf("✅ Added %s URL to scrape queue!\nURL: %s\n%s", platform, url, commandBatchNote)
}
