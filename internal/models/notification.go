package models

import "time"

type Channel string

const (
	ChannelEmail    Channel = "email"
	ChannelTelegram Channel = "telegram"
	ChannelWhatsApp Channel = "whatsapp"
)

var Channels = []Channel{ChannelEmail, ChannelTelegram, ChannelWhatsApp}

func (c Channel) IsValid() bool {
	return c == ChannelEmail || c == ChannelTelegram || c == ChannelWhatsApp
}

// NotificationSetting overrides the environment configuration of one channel.
// Config holds the provider fields (host, user, bot token, ...) as JSON.
type NotificationSetting struct {
	Channel   Channel   `json:"channel" gorm:"primaryKey;size:16"`
	Enabled   bool      `json:"enabled" gorm:"not null;default:false"`
	Config    string    `json:"-" gorm:"type:text"`
	UpdatedBy string    `json:"updatedBy,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (NotificationSetting) TableName() string { return "notification_settings" }
