package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/blastwave/internal/clock"
	pricingdomain "github.com/smallbiznis/blastwave/internal/pricing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	Repo  pricingdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  pricingdomain.Repository
}

func New(p Params) pricingdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("pricing.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) GetPrice(ctx context.Context, countryCode string, category pricingdomain.ConversationCategory) (*pricingdomain.Price, error) {
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))
	if countryCode == "" {
		countryCode = pricingdomain.CountryOther
	}
	now := s.clock.Now()

	rate, err := s.repo.FindEffectiveRate(ctx, s.db, countryCode, category, now)
	if err != nil {
		return nil, err
	}
	if rate == nil && countryCode != pricingdomain.CountryOther {
		rate, err = s.repo.FindEffectiveRate(ctx, s.db, pricingdomain.CountryOther, category, now)
		if err != nil {
			return nil, err
		}
	}
	if rate == nil {
		s.log.Warn("no conversation rate configured",
			zap.String("country_code", countryCode),
			zap.String("category", string(category)),
		)
		return nil, nil
	}

	return &pricingdomain.Price{Amount: rate.Price, Currency: rate.Currency}, nil
}
