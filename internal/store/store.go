// Package store persists relay configuration (channel languages and the link
// topology) and the message link records that tie an origin message to its
// relayed copies.
package store

import (
	"context"
	"fmt"
)

// Copy is one relayed rendering of an origin message.
type Copy struct {
	ChannelID string `json:"channel_id" bson:"channelId"`
	MessageID string `json:"message_id" bson:"messageId"`
}

// LinkRecord is the persisted association between an origin message and all
// of its copies. Copies holds at most one entry per channel.
type LinkRecord struct {
	AuthorID        string `json:"author_id" bson:"authorId"`
	OriginChannelID string `json:"origin_channel_id" bson:"originChannelId"`
	OriginMessageID string `json:"origin_message_id" bson:"originMessageId"`
	Copies          []Copy `json:"copies" bson:"copies"`
}

// CopyIn returns the copy relayed into channelID. The origin counts as the
// copy for its own channel.
func (r *LinkRecord) CopyIn(channelID string) (Copy, bool) {
	if r.OriginChannelID == channelID {
		return Copy{ChannelID: r.OriginChannelID, MessageID: r.OriginMessageID}, true
	}
	for _, c := range r.Copies {
		if c.ChannelID == channelID {
			return c, true
		}
	}
	return Copy{}, false
}

// Validate checks the record's required fields and the one-copy-per-channel rule.
func (r *LinkRecord) Validate() error {
	if r.OriginMessageID == "" {
		return fmt.Errorf("store: origin message ID is required")
	}
	if r.OriginChannelID == "" {
		return fmt.Errorf("store: origin channel ID is required")
	}
	seen := make(map[string]bool, len(r.Copies))
	for _, c := range r.Copies {
		if c.ChannelID == "" || c.MessageID == "" {
			return fmt.Errorf("store: copy of %s has empty channel or message ID", r.OriginMessageID)
		}
		if c.ChannelID == r.OriginChannelID || seen[c.ChannelID] {
			return fmt.Errorf("store: duplicate copy for channel %s", c.ChannelID)
		}
		seen[c.ChannelID] = true
	}
	return nil
}

// Links is the message link record store. Absence is reported as a nil
// record with a nil error.
type Links interface {
	// Create inserts a new record. It is called once per origin message.
	Create(ctx context.Context, rec LinkRecord) error

	// FindByCopyOrOrigin returns the record whose origin or one of whose
	// copies is the given message in the given channel.
	FindByCopyOrOrigin(ctx context.Context, messageID, channelID string) (*LinkRecord, error)

	// FindByOriginID returns the record for an origin message.
	FindByOriginID(ctx context.Context, messageID string) (*LinkRecord, error)
}

// Edge is a directed topology link.
type Edge struct {
	ChannelID       string `json:"channel_id" bson:"channelId"`
	LinkedChannelID string `json:"linked_channel_id" bson:"linkedChannelId"`
}

// Channels stores per-channel translation settings and the link topology.
type Channels interface {
	// Language returns the configured language of a channel.
	Language(ctx context.Context, channelID string) (string, bool, error)

	// LinkedChannels returns the channels a channel relays into.
	LinkedChannels(ctx context.Context, channelID string) ([]string, bool, error)

	SetLanguage(ctx context.Context, guildID, channelID, lang string) error
	UnsetLanguage(ctx context.Context, channelID string) error

	// Link connects two channels in both directions.
	Link(ctx context.Context, a, b string) error

	// Unlink removes both directions of a link.
	Unlink(ctx context.Context, a, b string) error

	// Edges lists directed links, optionally restricted to one source channel.
	Edges(ctx context.Context, channelID string) ([]Edge, error)
}
