package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog is one immutable operational record, written for every dispatch
// batch and campaign completion.
type AuditLog struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	TenantID   *snowflake.ID     `gorm:"index"`
	Action     string            `gorm:"type:text;not null"`
	TargetType string            `gorm:"type:text;not null"`
	TargetID   *string           `gorm:"type:text"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (AuditLog) TableName() string { return "audit_logs" }

type Service interface {
	AuditLog(ctx context.Context, tenantID *snowflake.ID, action, targetType string, targetID *string, metadata map[string]any) error
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
}

var ErrInvalidAction = errors.New("invalid_audit_action")
