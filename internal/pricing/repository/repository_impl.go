package repository

import (
	"context"
	"time"

	pricingdomain "github.com/smallbiznis/blastwave/internal/pricing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() pricingdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rate *pricingdomain.ConversationRate) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO conversation_rates (id, country_code, category, price, currency, effective_from, effective_to, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rate.ID,
		rate.CountryCode,
		rate.Category,
		rate.Price,
		rate.Currency,
		rate.EffectiveFrom,
		rate.EffectiveTo,
		rate.CreatedAt,
	).Error
}

func (r *repo) FindEffectiveRate(ctx context.Context, db *gorm.DB, countryCode string, category pricingdomain.ConversationCategory, asOf time.Time) (*pricingdomain.ConversationRate, error) {
	var rate pricingdomain.ConversationRate
	err := db.WithContext(ctx).Raw(
		`SELECT id, country_code, category, price, currency, effective_from, effective_to, created_at
		 FROM conversation_rates
		 WHERE country_code = ?
		   AND category = ?
		   AND effective_from <= ?
		   AND (effective_to IS NULL OR effective_to >= ?)
		 ORDER BY effective_from DESC
		 LIMIT 1`,
		countryCode,
		category,
		asOf,
		asOf,
	).Scan(&rate).Error
	if err != nil {
		return nil, err
	}
	if rate.ID == 0 {
		return nil, nil
	}
	return &rate, nil
}

func (r *repo) CountRates(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(*) FROM conversation_rates`).Scan(&count).Error
	return count, err
}
