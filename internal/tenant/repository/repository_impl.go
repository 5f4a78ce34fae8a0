package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	tenantdomain "github.com/smallbiznis/blastwave/internal/tenant/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() tenantdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, t *tenantdomain.Tenant) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tenants (id, name, slug, sending_enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.Name,
		t.Slug,
		t.SendingEnabled,
		t.CreatedAt,
		t.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*tenantdomain.Tenant, error) {
	var t tenantdomain.Tenant
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, slug, sending_enabled, created_at, updated_at
		 FROM tenants WHERE id = ?`,
		id,
	).Scan(&t).Error
	if err != nil {
		return nil, err
	}
	if t.ID == 0 {
		return nil, nil
	}
	return &t, nil
}

func (r *repo) FindChannel(ctx context.Context, db *gorm.DB, tenantID snowflake.ID) (*tenantdomain.WhatsAppChannel, error) {
	var ch tenantdomain.WhatsAppChannel
	err := db.WithContext(ctx).Raw(
		`SELECT id, tenant_id, phone_number_id, display_phone, access_token, status, created_at, updated_at
		 FROM whatsapp_channels WHERE tenant_id = ?`,
		tenantID,
	).Scan(&ch).Error
	if err != nil {
		return nil, err
	}
	if ch.ID == 0 {
		return nil, nil
	}
	return &ch, nil
}
