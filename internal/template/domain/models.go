package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// TemplateStatus mirrors the provider's template review lifecycle.
type TemplateStatus string

const (
	TemplateStatusDraft    TemplateStatus = "DRAFT"
	TemplateStatusPending  TemplateStatus = "PENDING"
	TemplateStatusApproved TemplateStatus = "APPROVED"
	TemplateStatusRejected TemplateStatus = "REJECTED"
)

// MessageTemplate is a provider-reviewed message body. Only APPROVED
// templates may be dispatched.
type MessageTemplate struct {
	ID        snowflake.ID   `gorm:"primaryKey"`
	TenantID  snowflake.ID   `gorm:"not null;index;uniqueIndex:ux_message_templates_tenant_name,priority:1"`
	Name      string         `gorm:"type:text;not null;uniqueIndex:ux_message_templates_tenant_name,priority:2"`
	Language  string         `gorm:"type:text;not null;default:'en'"`
	Category  string         `gorm:"type:text;not null"`
	Status    TemplateStatus `gorm:"type:text;not null;default:'DRAFT'"`
	CreatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (MessageTemplate) TableName() string { return "message_templates" }

var ErrNotFound = errors.New("template_not_found")
