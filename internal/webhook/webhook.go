// Package webhook manages the per-channel webhooks the relay posts through
// to impersonate original authors.
package webhook

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/zulandar/polyglot/internal/chat"
	"golang.org/x/sync/singleflight"
)

// DefaultName is the webhook name used when none is configured.
const DefaultName = "polyglot"

// Handle posts and edits messages in one channel through a webhook owned by
// this process.
type Handle struct {
	hook    chat.Webhook
	backend chat.WebhookBackend
}

// ChannelID returns the channel the handle posts into.
func (h *Handle) ChannelID() string { return h.hook.ChannelID }

// WebhookID returns the underlying webhook's ID.
func (h *Handle) WebhookID() string { return h.hook.ID }

// Send posts p and returns the created message.
func (h *Handle) Send(ctx context.Context, p chat.Payload) (chat.SentMessage, error) {
	sent, err := h.backend.ExecuteWebhook(ctx, h.hook, p)
	if err != nil {
		return chat.SentMessage{}, fmt.Errorf("webhook: send to %s: %w", h.hook.ChannelID, err)
	}
	if sent.ChannelID == "" {
		sent.ChannelID = h.hook.ChannelID
	}
	return sent, nil
}

// Edit replaces the content of a message previously posted by this handle.
func (h *Handle) Edit(ctx context.Context, messageID string, p chat.Payload) error {
	if err := h.backend.EditWebhookMessage(ctx, h.hook, messageID, p); err != nil {
		return fmt.Errorf("webhook: edit %s/%s: %w", h.hook.ChannelID, messageID, err)
	}
	return nil
}

// Cache lazily finds or creates one webhook per channel and keeps it for the
// lifetime of the process. Concurrent misses for the same channel share a
// single lookup, and an existing owned webhook is always preferred over
// creating a new one.
type Cache struct {
	backend chat.WebhookBackend
	name    string
	group   singleflight.Group

	mu      sync.RWMutex
	handles map[string]*Handle // channel ID -> handle
	owned   map[string]bool    // webhook ID -> owned by this process
}

// NewCache creates an empty webhook cache.
func NewCache(backend chat.WebhookBackend, name string) (*Cache, error) {
	if backend == nil {
		return nil, fmt.Errorf("webhook: backend is required")
	}
	if name == "" {
		name = DefaultName
	}
	return &Cache{
		backend: backend,
		name:    name,
		handles: make(map[string]*Handle),
		owned:   make(map[string]bool),
	}, nil
}

// Get returns the handle for channelID, finding or creating its webhook on
// first use.
func (c *Cache) Get(ctx context.Context, channelID string) (*Handle, error) {
	c.mu.RLock()
	h, ok := c.handles[channelID]
	c.mu.RUnlock()
	if ok {
		return h, nil
	}

	v, err, _ := c.group.Do(channelID, func() (interface{}, error) {
		c.mu.RLock()
		h, ok := c.handles[channelID]
		c.mu.RUnlock()
		if ok {
			return h, nil
		}

		hook, err := c.findOrCreate(ctx, channelID)
		if err != nil {
			return nil, err
		}
		h = &Handle{hook: hook, backend: c.backend}

		c.mu.Lock()
		c.handles[channelID] = h
		c.owned[hook.ID] = true
		c.mu.Unlock()
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

func (c *Cache) findOrCreate(ctx context.Context, channelID string) (chat.Webhook, error) {
	hooks, err := c.backend.ChannelWebhooks(ctx, channelID)
	if err != nil {
		return chat.Webhook{}, fmt.Errorf("webhook: list webhooks of %s: %w", channelID, err)
	}
	self := c.backend.SelfID()
	for _, hook := range hooks {
		if hook.OwnerID == self && hook.Token != "" {
			return hook, nil
		}
	}

	hook, err := c.backend.CreateWebhook(ctx, channelID, c.name)
	if err != nil {
		return chat.Webhook{}, fmt.Errorf("webhook: create in %s: %w", channelID, err)
	}
	log.Printf("webhook: created %s in channel %s", hook.ID, channelID)
	return hook, nil
}

// Owns reports whether webhookID belongs to this process. Unknown webhooks
// are looked up once and remembered.
func (c *Cache) Owns(ctx context.Context, webhookID string) (bool, error) {
	if webhookID == "" {
		return false, nil
	}
	c.mu.RLock()
	owned, ok := c.owned[webhookID]
	c.mu.RUnlock()
	if ok {
		return owned, nil
	}

	hook, err := c.backend.Webhook(ctx, webhookID)
	if err != nil {
		return false, fmt.Errorf("webhook: fetch %s: %w", webhookID, err)
	}
	owned = hook.OwnerID == c.backend.SelfID()

	c.mu.Lock()
	c.owned[webhookID] = owned
	c.mu.Unlock()
	return owned, nil
}

// SelfID returns the ID of the bot user that owns this process's webhooks.
func (c *Cache) SelfID() string {
	return c.backend.SelfID()
}
