package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	tenantdomain "github.com/smallbiznis/blastwave/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  tenantdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  tenantdomain.Repository
}

func New(p Params) tenantdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("tenant.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, name string) (*tenantdomain.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, tenantdomain.ErrInvalidName
	}

	now := time.Now().UTC()
	entity := &tenantdomain.Tenant{
		ID:             s.genID.Generate(),
		Name:           name,
		Slug:           slug.Make(name),
		SendingEnabled: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Insert(ctx, s.db, entity); err != nil {
		return nil, err
	}
	return entity, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*tenantdomain.Tenant, error) {
	t, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, tenantdomain.ErrNotFound
	}
	return t, nil
}

func (s *Service) GetChannel(ctx context.Context, tenantID snowflake.ID) (*tenantdomain.WhatsAppChannel, error) {
	ch, err := s.repo.FindChannel(ctx, s.db, tenantID)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, tenantdomain.ErrChannelNotFound
	}
	return ch, nil
}
