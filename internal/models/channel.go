package models

import "time"

// ChannelLanguage records the language a translation-enabled channel is
// written in.
type ChannelLanguage struct {
	ChannelID string `gorm:"primaryKey;size:32"`
	GuildID   string `gorm:"size:32;index"`
	Language  string `gorm:"size:35;not null"`
	UpdatedAt time.Time
}

// ChannelLink is one directed edge of the relay topology. Links are stored
// in both directions so the graph is undirected in effect.
type ChannelLink struct {
	ChannelID       string `gorm:"primaryKey;size:32"`
	LinkedChannelID string `gorm:"primaryKey;size:32;index"`
	CreatedAt       time.Time
}
