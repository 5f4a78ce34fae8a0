package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/blastwave/internal/config"
	pricingdomain "github.com/smallbiznis/blastwave/internal/pricing/domain"
	templatedomain "github.com/smallbiznis/blastwave/internal/template/domain"
	tenantdomain "github.com/smallbiznis/blastwave/internal/tenant/domain"
	"gorm.io/gorm"
)

// EnsureDefaultTenant seeds a tenant, its WhatsApp channel and an approved
// template so a fresh install can dispatch immediately.
func EnsureDefaultTenant(db *gorm.DB, boot config.BootstrapConfig) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tenant, err := ensureTenantTx(ctx, tx, node, boot.DefaultTenantName)
		if err != nil {
			return err
		}
		if err := ensureChannelTx(ctx, tx, node, tenant.ID, boot); err != nil {
			return err
		}
		return ensureTemplateTx(ctx, tx, node, tenant.ID, boot.DefaultTemplateName)
	})
}

func ensureTenantTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, name string) (tenantdomain.Tenant, error) {
	if name == "" {
		name = "Main"
	}

	var tenant tenantdomain.Tenant
	err := tx.WithContext(ctx).Where("slug = ?", slug.Make(name)).First(&tenant).Error
	if err == nil {
		return tenant, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return tenant, err
	}

	now := time.Now().UTC()
	tenant = tenantdomain.Tenant{
		ID:             node.Generate(),
		Name:           name,
		Slug:           slug.Make(name),
		SendingEnabled: true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := tx.WithContext(ctx).Create(&tenant).Error; err != nil {
		return tenant, err
	}
	return tenant, nil
}

func ensureChannelTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, tenantID snowflake.ID, boot config.BootstrapConfig) error {
	var channel tenantdomain.WhatsAppChannel
	err := tx.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&channel).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	status := tenantdomain.ChannelStatusPending
	if boot.DefaultPhoneNumberID != "" && boot.DefaultAccessToken != "" {
		status = tenantdomain.ChannelStatusConnected
	}

	now := time.Now().UTC()
	channel = tenantdomain.WhatsAppChannel{
		ID:            node.Generate(),
		TenantID:      tenantID,
		PhoneNumberID: boot.DefaultPhoneNumberID,
		AccessToken:   boot.DefaultAccessToken,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return tx.WithContext(ctx).Create(&channel).Error
}

func ensureTemplateTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, tenantID snowflake.ID, name string) error {
	if name == "" {
		name = "welcome_offer"
	}

	var tpl templatedomain.MessageTemplate
	err := tx.WithContext(ctx).Where("tenant_id = ? AND name = ?", tenantID, name).First(&tpl).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	tpl = templatedomain.MessageTemplate{
		ID:        node.Generate(),
		TenantID:  tenantID,
		Name:      name,
		Language:  "en",
		Category:  string(pricingdomain.CategoryMarketing),
		Status:    templatedomain.TemplateStatusApproved,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return tx.WithContext(ctx).Create(&tpl).Error
}

// EnsureConversationRates seeds a usable rate card. Prices follow Meta's
// published per-conversation pricing and can be superseded by inserting
// rows with a later effective_from.
func EnsureConversationRates(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	type rate struct {
		Country  string
		Category pricingdomain.ConversationCategory
		Price    float64
	}

	rates := []rate{
		{"IN", pricingdomain.CategoryMarketing, 0.0107},
		{"IN", pricingdomain.CategoryUtility, 0.0042},
		{"IN", pricingdomain.CategoryAuthentication, 0.0014},
		{"IN", pricingdomain.CategoryService, 0},

		{pricingdomain.CountryOther, pricingdomain.CategoryMarketing, 0.0250},
		{pricingdomain.CountryOther, pricingdomain.CategoryUtility, 0.0200},
		{pricingdomain.CountryOther, pricingdomain.CategoryAuthentication, 0.0150},
		{pricingdomain.CountryOther, pricingdomain.CategoryService, 0},
	}

	ctx := context.Background()
	now := time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, r := range rates {
			var count int64
			err := tx.WithContext(ctx).Raw(
				`SELECT COUNT(1) FROM conversation_rates WHERE country_code = ? AND category = ?`,
				r.Country, r.Category,
			).Scan(&count).Error
			if err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			entity := pricingdomain.ConversationRate{
				ID:            node.Generate(),
				CountryCode:   r.Country,
				Category:      r.Category,
				Price:         r.Price,
				Currency:      "USD",
				EffectiveFrom: now,
				CreatedAt:     now,
			}
			if err := tx.WithContext(ctx).Create(&entity).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
