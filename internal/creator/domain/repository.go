package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, creator *Creator) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Creator, error)
	FindByExternalID(ctx context.Context, db *gorm.DB, externalID string) (*Creator, error)
	List(ctx context.Context, db *gorm.DB) ([]*Creator, error)
	UpdateRewardTiers(ctx context.Context, db *gorm.DB, id snowflake.ID, tiers []RewardTier) error
	UpdateRevenueSummary(ctx context.Context, db *gorm.DB, id snowflake.ID, summary RevenueSummary) error
	AddRefundCredit(ctx context.Context, db *gorm.DB, id snowflake.ID, amount float64) error
	ConsumeRefundCredit(ctx context.Context, db *gorm.DB, id snowflake.ID, amount float64) error
	UpdateBillingCustomerID(ctx context.Context, db *gorm.DB, id snowflake.ID, customerID string) error
	BumpInvoicedCounters(ctx context.Context, db *gorm.DB, id snowflake.ID, amount float64) error
}
