package bots

// Platform identifies the messaging platform.
type Platform string

const (
	PlatformTelegram Platform = "telegram"
	PlatformDiscord  Platform = "discord"
	PlatformSlack    Platform = "slack"
	PlatformWeb      Platform = "web"
)

// Message length limits imposed by the platforms, in characters.
const (
	TelegramMaxMessage = 4096
	DiscordMaxMessage  = 2000
	SlackMaxMessage    = 4000
)

// IncomingMessage represents a message received from any platform.
type IncomingMessage struct {
	Platform  Platform
	ChannelID string
	UserID    string
	UserName  string
	Text      string
	ThreadID  string // for threaded replies
	Timestamp string
	RequestID string
}

// OutgoingMessage represents a response to send back.
type OutgoingMessage struct {
	ChannelID string `json:"channel_id"`
	Text      string `json:"text"`
	ThreadID  string `json:"thread_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
