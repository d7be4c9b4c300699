package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zulandar/polyglot/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLStore implements Links and Channels on a GORM database.
type SQLStore struct {
	db *gorm.DB
}

// NewSQLStore wraps a migrated GORM connection.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("store: db is required")
	}
	return &SQLStore{db: db}, nil
}

// Create inserts rec and its copies in one transaction.
func (s *SQLStore) Create(ctx context.Context, rec LinkRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}

	link := models.MessageLink{
		AuthorID:        rec.AuthorID,
		OriginChannelID: rec.OriginChannelID,
		OriginMessageID: rec.OriginMessageID,
		CreatedAt:       time.Now(),
	}
	for i, c := range rec.Copies {
		link.Copies = append(link.Copies, models.MessageCopy{
			Position:  i,
			ChannelID: c.ChannelID,
			MessageID: c.MessageID,
		})
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&link).Error
	})
	if err != nil {
		return fmt.Errorf("store: create link %s: %w", rec.OriginMessageID, err)
	}
	return nil
}

// FindByCopyOrOrigin locates the record containing (messageID, channelID)
// as its origin or as one of its copies.
func (s *SQLStore) FindByCopyOrOrigin(ctx context.Context, messageID, channelID string) (*LinkRecord, error) {
	db := s.db.WithContext(ctx)
	copies := db.Model(&models.MessageCopy{}).Select("link_id").
		Where("message_id = ? AND channel_id = ?", messageID, channelID)

	var link models.MessageLink
	err := preloadCopies(db).
		Where("(origin_message_id = ? AND origin_channel_id = ?) OR id IN (?)", messageID, channelID, copies).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find link for %s/%s: %w", channelID, messageID, err)
	}
	return toRecord(link), nil
}

// FindByOriginID returns the record for an origin message ID.
func (s *SQLStore) FindByOriginID(ctx context.Context, messageID string) (*LinkRecord, error) {
	var link models.MessageLink
	err := preloadCopies(s.db.WithContext(ctx)).
		Where("origin_message_id = ?", messageID).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: find link by origin %s: %w", messageID, err)
	}
	return toRecord(link), nil
}

func preloadCopies(db *gorm.DB) *gorm.DB {
	return db.Preload("Copies", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	})
}

func toRecord(link models.MessageLink) *LinkRecord {
	rec := &LinkRecord{
		AuthorID:        link.AuthorID,
		OriginChannelID: link.OriginChannelID,
		OriginMessageID: link.OriginMessageID,
		Copies:          make([]Copy, 0, len(link.Copies)),
	}
	for _, c := range link.Copies {
		rec.Copies = append(rec.Copies, Copy{ChannelID: c.ChannelID, MessageID: c.MessageID})
	}
	return rec
}

// Language returns the configured language of channelID.
func (s *SQLStore) Language(ctx context.Context, channelID string) (string, bool, error) {
	var row models.ChannelLanguage
	err := s.db.WithContext(ctx).Where("channel_id = ?", channelID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("store: language of %s: %w", channelID, err)
	}
	return row.Language, true, nil
}

// LinkedChannels returns the channels channelID relays into, ordered by ID.
// A channel with no links is reported as absent.
func (s *SQLStore) LinkedChannels(ctx context.Context, channelID string) ([]string, bool, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.ChannelLink{}).
		Where("channel_id = ?", channelID).
		Order("linked_channel_id ASC").
		Pluck("linked_channel_id", &ids).Error
	if err != nil {
		return nil, false, fmt.Errorf("store: links of %s: %w", channelID, err)
	}
	if len(ids) == 0 {
		return nil, false, nil
	}
	return ids, true, nil
}

// SetLanguage creates or replaces a channel's language.
func (s *SQLStore) SetLanguage(ctx context.Context, guildID, channelID, lang string) error {
	if channelID == "" || lang == "" {
		return fmt.Errorf("store: channel ID and language are required")
	}
	row := models.ChannelLanguage{
		ChannelID: channelID,
		GuildID:   guildID,
		Language:  lang,
		UpdatedAt: time.Now(),
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "channel_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"guild_id", "language", "updated_at"}),
	}).Create(&row)
	if result.Error != nil {
		return fmt.Errorf("store: set language of %s: %w", channelID, result.Error)
	}
	return nil
}

// UnsetLanguage removes a channel's language.
func (s *SQLStore) UnsetLanguage(ctx context.Context, channelID string) error {
	result := s.db.WithContext(ctx).Where("channel_id = ?", channelID).Delete(&models.ChannelLanguage{})
	if result.Error != nil {
		return fmt.Errorf("store: unset language of %s: %w", channelID, result.Error)
	}
	return nil
}

// Link connects a and b in both directions. Existing edges are kept.
func (s *SQLStore) Link(ctx context.Context, a, b string) error {
	if a == "" || b == "" {
		return fmt.Errorf("store: both channel IDs are required")
	}
	if a == b {
		return fmt.Errorf("store: cannot link channel %s to itself", a)
	}
	now := time.Now()
	edges := []models.ChannelLink{
		{ChannelID: a, LinkedChannelID: b, CreatedAt: now},
		{ChannelID: b, LinkedChannelID: a, CreatedAt: now},
	}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&edges)
	if result.Error != nil {
		return fmt.Errorf("store: link %s <-> %s: %w", a, b, result.Error)
	}
	return nil
}

// Unlink removes both directions of the a-b link.
func (s *SQLStore) Unlink(ctx context.Context, a, b string) error {
	result := s.db.WithContext(ctx).
		Where("(channel_id = ? AND linked_channel_id = ?) OR (channel_id = ? AND linked_channel_id = ?)", a, b, b, a).
		Delete(&models.ChannelLink{})
	if result.Error != nil {
		return fmt.Errorf("store: unlink %s <-> %s: %w", a, b, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("store: no link between %s and %s", a, b)
	}
	return nil
}

// Edges lists directed links. An empty channelID lists every edge.
func (s *SQLStore) Edges(ctx context.Context, channelID string) ([]Edge, error) {
	q := s.db.WithContext(ctx).Model(&models.ChannelLink{})
	if channelID != "" {
		q = q.Where("channel_id = ?", channelID)
	}
	var rows []models.ChannelLink
	if err := q.Order("channel_id ASC, linked_channel_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: list links: %w", err)
	}
	edges := make([]Edge, 0, len(rows))
	for _, r := range rows {
		edges = append(edges, Edge{ChannelID: r.ChannelID, LinkedChannelID: r.LinkedChannelID})
	}
	return edges, nil
}
