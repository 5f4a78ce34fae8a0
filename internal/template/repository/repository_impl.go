package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	templatedomain "github.com/smallbiznis/blastwave/internal/template/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() templatedomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, tpl *templatedomain.MessageTemplate) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO message_templates (id, tenant_id, name, language, category, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tpl.ID,
		tpl.TenantID,
		tpl.Name,
		tpl.Language,
		tpl.Category,
		tpl.Status,
		tpl.CreatedAt,
		tpl.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*templatedomain.MessageTemplate, error) {
	var tpl templatedomain.MessageTemplate
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, name, language, category, status, created_at, updated_at
		 FROM message_templates WHERE id = ?`,
		id,
	).Scan(&tpl).Error
	if err != nil {
		return nil, err
	}
	if tpl.ID == 0 {
		return nil, nil
	}
	return &tpl, nil
}
