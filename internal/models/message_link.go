package models

import "time"

// MessageLink ties an originating message to its relayed copies. It is
// written once, after the relay fan-out completes, and never updated.
type MessageLink struct {
	ID              uint   `gorm:"primaryKey;autoIncrement"`
	AuthorID        string `gorm:"size:32;not null"`
	OriginChannelID string `gorm:"size:32;not null;index:idx_origin_pair"`
	OriginMessageID string `gorm:"size:32;not null;uniqueIndex;index:idx_origin_pair"`
	CreatedAt       time.Time

	Copies []MessageCopy `gorm:"foreignKey:LinkID"`
}

// MessageCopy is a relayed rendering of a MessageLink's origin in one
// target channel.
type MessageCopy struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	LinkID    uint   `gorm:"not null;uniqueIndex:idx_link_channel"`
	Position  int    `gorm:"not null"`
	ChannelID string `gorm:"size:32;not null;uniqueIndex:idx_link_channel;index:idx_copy_pair"`
	MessageID string `gorm:"size:32;not null;index:idx_copy_pair"`
}
