package types

import (
	"context"
)

// IdentityLookup resolves a Slack user ID to its profile names
type IdentityLookup interface {
	LookupUser(ctx context.Context, userID string) (*UserIdentity, error)
}

// Replier sends the bot's answers back to Slack
type Replier interface {
	// PostMessage posts text to a channel
	PostMessage(ctx context.Context, channelID, text string) error
	// RespondToCommand answers a slash command through its response URL
	RespondToCommand(ctx context.Context, responseURL, text string) error
}

// Dispatcher receives inbound events from a transport
type Dispatcher interface {
	HandleMention(ctx context.Context, event MentionEvent)
	// HandleCommand must call ack before any slow work
	HandleCommand(ctx context.Context, cmd CommandRequest, ack func())
}
