package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/blackbridgeaiagency-star/flywheel/internal/creator/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, creator *domain.Creator) error {
	return db.WithContext(ctx).Create(creator).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Creator, error) {
	var creator domain.Creator
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&creator).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &creator, nil
}

func (r *repo) FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*domain.Creator, error) {
	var creator domain.Creator
	err := db.WithContext(ctx).
		Where("external_id = ?", externalID).
		First(&creator).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &creator, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]*domain.Creator, error) {
	var creators []*domain.Creator
	err := db.WithContext(ctx).
		Order("created_at asc, id asc").
		Find(&creators).Error
	if err != nil {
		return nil, err
	}
	return creators, nil
}

func (r *repo) UpdateRewardTiers(ctx context.Context, db *gorm.DB, id snowflake.ID, tiers []domain.RewardTier) error {
	encoded, err := json.Marshal(tiers)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).
		Model(&domain.Creator{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"reward_tiers": encoded,
			"updated_at":   time.Now().UTC(),
		}).Error
}

func (r *repo) UpdateRevenueSummary(ctx context.Context, db *gorm.DB, id snowflake.ID, summary domain.RevenueSummary) error {
	return db.WithContext(ctx).
		Model(&domain.Creator{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"total_revenue":   summary.TotalRevenue,
			"monthly_revenue": summary.MonthlyRevenue,
			"updated_at":      time.Now().UTC(),
		}).Error
}

func (r *repo) UpdateBillingCustomerID(ctx context.Context, db *gorm.DB, id snowflake.ID, customerID string) error {
	return db.WithContext(ctx).
		Model(&domain.Creator{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"billing_customer_id": customerID,
			"updated_at":          time.Now().UTC(),
		}).Error
}

func (r *repo) BumpInvoicedCounters(ctx context.Context, db *gorm.DB, id snowflake.ID, amount float64) error {
	return db.WithContext(ctx).
		Model(&domain.Creator{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"lifetime_invoiced_amount": gorm.Expr("lifetime_invoiced_amount + ?", amount),
			"lifetime_invoiced_count":  gorm.Expr("lifetime_invoiced_count + 1"),
			"updated_at":               time.Now().UTC(),
		}).Error
}

func (r *repo) ConsumeRefundCredit(ctx context.Context, db *gorm.DB, id snowflake.ID, amount float64) error {
	return db.WithContext(ctx).
		Model(&domain.Creator{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"pending_refund_credit": gorm.Expr("pending_refund_credit - ?", amount),
			"updated_at":            time.Now().UTC(),
		}).Error
}

func (r *repo) AddRefundCredit(ctx context.Context, db *gorm.DB, id snowflake.ID, amount float64) error {
	return db.WithContext(ctx).
		Model(&domain.Creator{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"pending_refund_credit": gorm.Expr("pending_refund_credit + ?", amount),
			"updated_at":            time.Now().UTC(),
		}).Error
}
