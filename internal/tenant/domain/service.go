package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, name string) (*Tenant, error)
	Get(ctx context.Context, id snowflake.ID) (*Tenant, error)
	GetChannel(ctx context.Context, tenantID snowflake.ID) (*WhatsAppChannel, error)
}

var (
	ErrInvalidName     = errors.New("invalid_tenant_name")
	ErrNotFound        = errors.New("tenant_not_found")
	ErrChannelNotFound = errors.New("whatsapp_channel_not_found")
)
