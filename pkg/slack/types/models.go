package types

// Event types carried in request contexts and logs
const (
	EventTypeAppMention   = "app_mention"
	EventTypeSlashCommand = "slash_command"
)

// MentionEvent is an app_mention addressed to the bot
type MentionEvent struct {
	Text    string `json:"text"`
	User    string `json:"user"`
	Channel string `json:"channel"`
	TS      string `json:"ts"`
}

// CommandRequest is a slash command invocation
type CommandRequest struct {
	Command     string `json:"command"`
	Text        string `json:"text"`
	UserID      string `json:"user_id"`
	ChannelID   string `json:"channel_id"`
	ResponseURL string `json:"response_url"`
}

// UserIdentity holds the name fields returned by users.info
type UserIdentity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	RealName    string `json:"real_name"`
	DisplayName string `json:"display_name"`
}
