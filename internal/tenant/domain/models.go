package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ChannelStatus is the connection state of a tenant's WhatsApp number.
type ChannelStatus string

const (
	ChannelStatusPending      ChannelStatus = "PENDING"
	ChannelStatusConnected    ChannelStatus = "CONNECTED"
	ChannelStatusDisconnected ChannelStatus = "DISCONNECTED"
)

// Tenant owns campaigns, conversations and ledger entries.
type Tenant struct {
	ID             snowflake.ID `gorm:"primaryKey"`
	Name           string       `gorm:"type:text;not null"`
	Slug           string       `gorm:"type:text;not null;uniqueIndex"`
	SendingEnabled bool         `gorm:"not null;default:true"`
	CreatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Tenant) TableName() string { return "tenants" }

// WhatsAppChannel holds the Graph API credentials for one tenant number.
type WhatsAppChannel struct {
	ID            snowflake.ID  `gorm:"primaryKey"`
	TenantID      snowflake.ID  `gorm:"not null;uniqueIndex"`
	PhoneNumberID string        `gorm:"type:text;not null"`
	DisplayPhone  string        `gorm:"type:text"`
	AccessToken   string        `gorm:"type:text;not null"`
	Status        ChannelStatus `gorm:"type:text;not null;default:'PENDING'"`
	CreatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (WhatsAppChannel) TableName() string { return "whatsapp_channels" }
