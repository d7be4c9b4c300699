// Package chat defines the platform-neutral message, event, and webhook types
// shared by the relay, the webhook cache, and the platform adapters.
package chat

import "context"

// EventKind distinguishes newly posted messages from edits.
type EventKind string

const (
	EventCreate EventKind = "create"
	EventUpdate EventKind = "update"
)

// Event is a message-created or message-updated notification from the platform.
type Event struct {
	Kind    EventKind
	Message Message
}

// Message is an inbound chat message as delivered by the platform.
type Message struct {
	ID          string
	ChannelID   string
	GuildID     string
	Author      Author
	WebhookID   string // non-empty when the message was posted through a webhook
	Content     string
	Attachments []Attachment
	Stickers    []Sticker
	Reference   *Reference // set when the message is a reply
}

// Author identifies who posted a message.
type Author struct {
	ID          string
	Username    string
	DisplayName string // server nickname or global name; may be empty
	AvatarURL   string
	Bot         bool
}

// Name returns the best human-readable name for the author.
func (a Author) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.Username
}

// Attachment is a file attached to a message.
type Attachment struct {
	Filename string
	URL      string
}

// Sticker is a non-text sticker sent with a message.
type Sticker struct {
	ID   string
	Name string
	URL  string
}

// Reference points at the message being replied to.
type Reference struct {
	ChannelID string
	MessageID string
}

// Payload is the content posted or edited through a webhook.
type Payload struct {
	Username    string
	AvatarURL   string
	Content     string
	Attachments []Attachment
	Embeds      []Embed
}

// Embed is a minimal rich-content block, used for reply previews.
type Embed struct {
	AuthorName    string
	AuthorIconURL string
	Description   string
	URL           string
}

// SentMessage identifies a message posted by a webhook.
type SentMessage struct {
	ChannelID string
	MessageID string
}

// Webhook is a per-channel posting identity as reported by the platform.
type Webhook struct {
	ID        string
	ChannelID string
	Token     string
	Name      string
	OwnerID   string // user or application that created the webhook
}

// Fetcher loads existing messages from the platform.
type Fetcher interface {
	FetchMessage(ctx context.Context, channelID, messageID string) (*Message, error)
}

// WebhookBackend is the subset of platform operations needed to find, create,
// and post through per-channel webhooks.
type WebhookBackend interface {
	// ChannelWebhooks lists the webhooks configured on a channel.
	ChannelWebhooks(ctx context.Context, channelID string) ([]Webhook, error)

	// CreateWebhook creates a new webhook on a channel owned by this process.
	CreateWebhook(ctx context.Context, channelID, name string) (Webhook, error)

	// Webhook fetches a single webhook by ID.
	Webhook(ctx context.Context, webhookID string) (Webhook, error)

	// ExecuteWebhook posts a payload and waits for the created message.
	ExecuteWebhook(ctx context.Context, hook Webhook, p Payload) (SentMessage, error)

	// EditWebhookMessage replaces the content of a message posted by hook.
	EditWebhookMessage(ctx context.Context, hook Webhook, messageID string, p Payload) error

	// SelfID returns the ID of the bot user running this process.
	SelfID() string
}

// Adapter connects to a chat platform and streams message events.
type Adapter interface {
	Fetcher
	WebhookBackend

	// Connect establishes the platform connection.
	Connect(ctx context.Context) error

	// Listen returns a channel of message events. The channel is closed when
	// the adapter is closed. Listen must only be called after Connect.
	Listen(ctx context.Context) (<-chan Event, error)

	// Close gracefully shuts down the connection.
	Close() error
}
