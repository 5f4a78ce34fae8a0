package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignStatusDraft     CampaignStatus = "DRAFT"
	CampaignStatusQueued    CampaignStatus = "QUEUED"
	CampaignStatusRunning   CampaignStatus = "RUNNING"
	CampaignStatusPaused    CampaignStatus = "PAUSED"
	CampaignStatusCompleted CampaignStatus = "COMPLETED"
	CampaignStatusFailed    CampaignStatus = "FAILED"
)

// MessageStatus is the delivery state of one campaign message.
type MessageStatus string

const (
	MessageStatusQueued    MessageStatus = "QUEUED"
	MessageStatusSent      MessageStatus = "SENT"
	MessageStatusDelivered MessageStatus = "DELIVERED"
	MessageStatusRead      MessageStatus = "READ"
	MessageStatusFailed    MessageStatus = "FAILED"
)

// Campaign is the tenant-owned aggregate mutated by both the dispatcher and
// the webhook reconciler.
type Campaign struct {
	ID       snowflake.ID   `gorm:"primaryKey"`
	TenantID snowflake.ID   `gorm:"not null;index"`
	Name     string         `gorm:"type:text;not null"`
	Status   CampaignStatus `gorm:"type:text;not null;default:'DRAFT'"`

	TemplateID snowflake.ID `gorm:"not null"`

	SentCount      int64 `gorm:"not null;default:0"`
	DeliveredCount int64 `gorm:"not null;default:0"`
	ReadCount      int64 `gorm:"not null;default:0"`
	FailedCount    int64 `gorm:"not null;default:0"`

	TotalConversations    int64   `gorm:"not null;default:0"`
	BillableConversations int64   `gorm:"not null;default:0"`
	TotalCost             float64 `gorm:"type:numeric;not null;default:0"`
	CostCurrency          string  `gorm:"type:text;not null;default:'USD'"`

	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Campaign) TableName() string { return "campaigns" }

// CampaignMessage is one outbound message row. ProviderMessageID is set
// exactly once; a non-null value means the message was already sent.
type CampaignMessage struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	CampaignID snowflake.ID `gorm:"not null;index"`

	RecipientPhone string         `gorm:"type:text;not null"`
	TemplateName   string         `gorm:"type:text;not null"`
	Language       string         `gorm:"type:text;not null;default:'en'"`
	Variables      datatypes.JSON `gorm:"type:jsonb"`

	Status            MessageStatus `gorm:"type:text;not null;default:'QUEUED';index"`
	RetryCount        int           `gorm:"not null;default:0"`
	ProviderMessageID *string       `gorm:"type:text;uniqueIndex"`
	ErrorMessage      *string       `gorm:"type:text"`

	SentAt    *time.Time
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (CampaignMessage) TableName() string { return "campaign_messages" }

// ProcessResult summarizes one dispatch batch.
type ProcessResult struct {
	Processed      int            `json:"processed"`
	SuccessCount   int            `json:"successCount"`
	FailCount      int            `json:"failCount"`
	RemainingCount int64          `json:"remainingCount"`
	Status         CampaignStatus `json:"status"`
}
