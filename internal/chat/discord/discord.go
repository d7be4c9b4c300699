// Package discord implements the chat Adapter for Discord using the Gateway
// WebSocket for events and the REST API for messages and webhooks.
package discord

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/zulandar/polyglot/internal/chat"
)

const (
	// maxRetries is the max number of retries for rate-limited API calls.
	maxRetries = 3
	// baseBackoff is the initial backoff duration for rate-limit retries.
	baseBackoff = 2 * time.Second
	// maxBackoff caps the exponential backoff.
	maxBackoff = 2 * time.Minute
	// maxContentLength is Discord's message content limit in characters.
	maxContentLength = 2000
	// stickerURLFormat is the CDN location of a sticker image.
	stickerURLFormat = "https://media.discordapp.net/stickers/%s.%s"
)

// session abstracts the discordgo.Session methods we use, enabling test mocks.
type session interface {
	Open() error
	Close() error
	AddHandler(handler interface{}) func()
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelWebhooks(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Webhook, error)
	WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	Webhook(webhookID string, options ...discordgo.RequestOption) (*discordgo.Webhook, error)
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
	WebhookMessageEdit(webhookID, token, messageID string, data *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// realSession wraps *discordgo.Session to implement the session interface.
type realSession struct {
	s *discordgo.Session
}

func (r *realSession) Open() error  { return r.s.Open() }
func (r *realSession) Close() error { return r.s.Close() }
func (r *realSession) AddHandler(handler interface{}) func() {
	return r.s.AddHandler(handler)
}
func (r *realSession) ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.ChannelMessage(channelID, messageID, options...)
}
func (r *realSession) ChannelWebhooks(channelID string, options ...discordgo.RequestOption) ([]*discordgo.Webhook, error) {
	return r.s.ChannelWebhooks(channelID, options...)
}
func (r *realSession) WebhookCreate(channelID, name, avatar string, options ...discordgo.RequestOption) (*discordgo.Webhook, error) {
	return r.s.WebhookCreate(channelID, name, avatar, options...)
}
func (r *realSession) Webhook(webhookID string, options ...discordgo.RequestOption) (*discordgo.Webhook, error) {
	return r.s.Webhook(webhookID, options...)
}
func (r *realSession) WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.WebhookExecute(webhookID, token, wait, data, options...)
}
func (r *realSession) WebhookMessageEdit(webhookID, token, messageID string, data *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	return r.s.WebhookMessageEdit(webhookID, token, messageID, data, options...)
}

// Adapter implements chat.Adapter for Discord.
type Adapter struct {
	sess     session
	botToken string

	mu        sync.Mutex
	botUserID string
	connected bool
	closed    bool
	removers  []func()

	// sendMu guards inbound against sends after close.
	sendMu  sync.RWMutex
	inbound chan chat.Event
	done    chan struct{}

	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// AdapterOpts holds parameters for creating a Discord Adapter.
type AdapterOpts struct {
	BotToken string // Discord bot token
	// For testing: inject a mock session instead of real Discord API.
	Session session
}

// New creates a Discord Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.Session == nil && opts.BotToken == "" {
		return nil, fmt.Errorf("discord: bot token is required")
	}
	return &Adapter{
		sess:        opts.Session,
		botToken:    opts.BotToken,
		inbound:     make(chan chat.Event, 100),
		done:        make(chan struct{}),
		baseBackoff: baseBackoff,
		maxBackoff:  maxBackoff,
	}, nil
}

// Connect establishes the Discord Gateway WebSocket connection.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("discord: adapter already closed")
	}
	if a.connected {
		return nil
	}

	if a.sess == nil {
		dg, err := discordgo.New("Bot " + a.botToken)
		if err != nil {
			return fmt.Errorf("discord: create session: %w", err)
		}
		dg.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsMessageContent | discordgo.IntentsGuildWebhooks
		a.sess = &realSession{s: dg}
	}

	// Capture the bot user ID on connect and reconnect.
	a.removers = append(a.removers, a.sess.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		a.mu.Lock()
		a.botUserID = r.User.ID
		a.mu.Unlock()
		log.Printf("discord: connected as %s (ID: %s)", r.User.Username, r.User.ID)
	}))
	a.removers = append(a.removers, a.sess.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		log.Printf("discord: gateway disconnected, discordgo will auto-reconnect")
	}))

	if err := a.sess.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	a.connected = true
	return nil
}

// Listen registers the message handlers and returns the event stream.
func (a *Adapter) Listen(ctx context.Context) (<-chan chat.Event, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return nil, fmt.Errorf("discord: not connected")
	}

	a.removers = append(a.removers,
		a.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
			a.dispatch(chat.EventCreate, m.Message)
		}),
		a.sess.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageUpdate) {
			a.dispatch(chat.EventUpdate, m.Message)
		}),
	)
	return a.inbound, nil
}

// dispatch converts a gateway message and forwards it to the event stream.
func (a *Adapter) dispatch(kind chat.EventKind, m *discordgo.Message) {
	// Partial updates (embed unfurls) carry no author.
	if m == nil || m.Author == nil {
		return
	}
	ev := chat.Event{Kind: kind, Message: convertMessage(m)}

	a.sendMu.RLock()
	defer a.sendMu.RUnlock()
	select {
	case <-a.done:
	case a.inbound <- ev:
	}
}

// Close gracefully shuts down the adapter connection and closes the event
// stream.
func (a *Adapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.connected = false
	for _, remove := range a.removers {
		remove()
	}
	a.removers = nil
	sess := a.sess
	a.mu.Unlock()

	close(a.done)
	a.sendMu.Lock()
	close(a.inbound)
	a.sendMu.Unlock()

	if sess != nil {
		return sess.Close()
	}
	return nil
}

// SelfID returns the bot's Discord user ID (available after the Ready event).
func (a *Adapter) SelfID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.botUserID
}

// SetSelfID sets the bot user ID, for tests and pre-known identities.
func (a *Adapter) SetSelfID(id string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.botUserID = id
}

// FetchMessage loads a message by channel and ID.
func (a *Adapter) FetchMessage(ctx context.Context, channelID, messageID string) (*chat.Message, error) {
	var m *discordgo.Message
	err := a.retryOnRateLimit(ctx, func() error {
		var apiErr error
		m, apiErr = a.sess.ChannelMessage(channelID, messageID, discordgo.WithContext(ctx))
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("discord: fetch message %s/%s: %w", channelID, messageID, err)
	}
	msg := convertMessage(m)
	if msg.ChannelID == "" {
		msg.ChannelID = channelID
	}
	return &msg, nil
}

// ChannelWebhooks lists the webhooks on a channel.
func (a *Adapter) ChannelWebhooks(ctx context.Context, channelID string) ([]chat.Webhook, error) {
	var hooks []*discordgo.Webhook
	err := a.retryOnRateLimit(ctx, func() error {
		var apiErr error
		hooks, apiErr = a.sess.ChannelWebhooks(channelID, discordgo.WithContext(ctx))
		return apiErr
	})
	if err != nil {
		return nil, fmt.Errorf("discord: list webhooks of %s: %w", channelID, err)
	}
	out := make([]chat.Webhook, 0, len(hooks))
	for _, h := range hooks {
		out = append(out, convertWebhook(h))
	}
	return out, nil
}

// CreateWebhook creates a webhook on a channel.
func (a *Adapter) CreateWebhook(ctx context.Context, channelID, name string) (chat.Webhook, error) {
	var hook *discordgo.Webhook
	err := a.retryOnRateLimit(ctx, func() error {
		var apiErr error
		hook, apiErr = a.sess.WebhookCreate(channelID, name, "", discordgo.WithContext(ctx))
		return apiErr
	})
	if err != nil {
		return chat.Webhook{}, fmt.Errorf("discord: create webhook in %s: %w", channelID, err)
	}
	return convertWebhook(hook), nil
}

// Webhook fetches a webhook by ID.
func (a *Adapter) Webhook(ctx context.Context, webhookID string) (chat.Webhook, error) {
	var hook *discordgo.Webhook
	err := a.retryOnRateLimit(ctx, func() error {
		var apiErr error
		hook, apiErr = a.sess.Webhook(webhookID, discordgo.WithContext(ctx))
		return apiErr
	})
	if err != nil {
		return chat.Webhook{}, fmt.Errorf("discord: get webhook %s: %w", webhookID, err)
	}
	return convertWebhook(hook), nil
}

// ExecuteWebhook posts p through hook and waits for the created message.
func (a *Adapter) ExecuteWebhook(ctx context.Context, hook chat.Webhook, p chat.Payload) (chat.SentMessage, error) {
	params := buildWebhookParams(p)
	var m *discordgo.Message
	err := a.retryOnRateLimit(ctx, func() error {
		var apiErr error
		m, apiErr = a.sess.WebhookExecute(hook.ID, hook.Token, true, params, discordgo.WithContext(ctx))
		return apiErr
	})
	if err != nil {
		return chat.SentMessage{}, fmt.Errorf("discord: execute webhook %s: %w", hook.ID, err)
	}
	if m == nil {
		return chat.SentMessage{}, fmt.Errorf("discord: execute webhook %s: no message returned", hook.ID)
	}
	channelID := m.ChannelID
	if channelID == "" {
		channelID = hook.ChannelID
	}
	return chat.SentMessage{ChannelID: channelID, MessageID: m.ID}, nil
}

// EditWebhookMessage replaces the content of a message posted by hook.
func (a *Adapter) EditWebhookMessage(ctx context.Context, hook chat.Webhook, messageID string, p chat.Payload) error {
	content := renderContent(p.Content, p.Attachments)
	edit := &discordgo.WebhookEdit{
		Content:         &content,
		AllowedMentions: allowedMentions(),
	}
	err := a.retryOnRateLimit(ctx, func() error {
		_, apiErr := a.sess.WebhookMessageEdit(hook.ID, hook.Token, messageID, edit, discordgo.WithContext(ctx))
		return apiErr
	})
	if err != nil {
		return fmt.Errorf("discord: edit message %s: %w", messageID, err)
	}
	return nil
}

// convertMessage maps a discordgo message onto the platform-neutral form.
func convertMessage(m *discordgo.Message) chat.Message {
	msg := chat.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		WebhookID: m.WebhookID,
		Content:   m.Content,
	}
	if m.Author != nil {
		msg.Author = chat.Author{
			ID:          m.Author.ID,
			Username:    m.Author.Username,
			DisplayName: m.Author.GlobalName,
			AvatarURL:   m.Author.AvatarURL(""),
			Bot:         m.Author.Bot,
		}
	}
	if m.Member != nil && m.Member.Nick != "" {
		msg.Author.DisplayName = m.Member.Nick
	}
	for _, att := range m.Attachments {
		msg.Attachments = append(msg.Attachments, chat.Attachment{Filename: att.Filename, URL: att.URL})
	}
	for _, st := range m.StickerItems {
		msg.Stickers = append(msg.Stickers, chat.Sticker{ID: st.ID, Name: st.Name, URL: stickerURL(st)})
	}
	if m.Type == discordgo.MessageTypeReply && m.MessageReference != nil {
		msg.Reference = &chat.Reference{
			ChannelID: m.MessageReference.ChannelID,
			MessageID: m.MessageReference.MessageID,
		}
	}
	return msg
}

// stickerURL returns the CDN image URL of a sticker.
func stickerURL(st *discordgo.StickerItem) string {
	ext := "png"
	if st.FormatType == discordgo.StickerFormatTypeGIF {
		ext = "gif"
	}
	return fmt.Sprintf(stickerURLFormat, st.ID, ext)
}

func convertWebhook(h *discordgo.Webhook) chat.Webhook {
	if h == nil {
		return chat.Webhook{}
	}
	hook := chat.Webhook{
		ID:        h.ID,
		ChannelID: h.ChannelID,
		Token:     h.Token,
		Name:      h.Name,
	}
	if h.User != nil {
		hook.OwnerID = h.User.ID
	}
	return hook
}

// buildWebhookParams translates a Payload into a Discord webhook execution.
func buildWebhookParams(p chat.Payload) *discordgo.WebhookParams {
	params := &discordgo.WebhookParams{
		Username:        p.Username,
		AvatarURL:       p.AvatarURL,
		Content:         renderContent(p.Content, p.Attachments),
		AllowedMentions: allowedMentions(),
	}
	for _, e := range p.Embeds {
		params.Embeds = append(params.Embeds, embedToDiscord(e))
	}
	return params
}

// embedToDiscord renders a reply preview embed.
func embedToDiscord(e chat.Embed) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Author: &discordgo.MessageEmbedAuthor{
			Name:    e.AuthorName,
			IconURL: e.AuthorIconURL,
			URL:     e.URL,
		},
		Description: e.Description,
	}
}

// renderContent appends attachment URLs as extra lines so Discord unfurls
// them, and clamps the result to the message length limit.
func renderContent(content string, attachments []chat.Attachment) string {
	lines := make([]string, 0, len(attachments)+1)
	if content != "" {
		lines = append(lines, content)
	}
	for _, att := range attachments {
		lines = append(lines, att.URL)
	}
	out := strings.Join(lines, "\n")
	if utf8.RuneCountInString(out) > maxContentLength {
		out = string([]rune(out)[:maxContentLength])
	}
	return out
}

// allowedMentions lets relayed copies ping users but never roles or @everyone.
func allowedMentions() *discordgo.MessageAllowedMentions {
	return &discordgo.MessageAllowedMentions{
		Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers},
	}
}

// retryOnRateLimit calls fn and retries with exponential backoff on Discord
// rate limit errors. It respects context cancellation.
func (a *Adapter) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		restErr, ok := err.(*discordgo.RESTError)
		if !ok || restErr.Response == nil || restErr.Response.StatusCode != 429 {
			return err
		}

		if attempt == maxRetries {
			return err
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * a.baseBackoff
		if wait > a.maxBackoff {
			wait = a.maxBackoff
		}

		log.Printf("discord: rate limited (attempt %d/%d), retrying in %v",
			attempt+1, maxRetries, wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}

var _ chat.Adapter = (*Adapter)(nil)
