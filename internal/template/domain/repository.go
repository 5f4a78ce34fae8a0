package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, tpl *MessageTemplate) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*MessageTemplate, error)
}
