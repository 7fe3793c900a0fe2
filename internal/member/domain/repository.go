package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, member *Member) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Member, error)
	FindByMembershipID(ctx context.Context, db *gorm.DB, membershipID string) (*Member, error)
	FindByReferralCode(ctx context.Context, db *gorm.DB, code string) (*Member, error)
	UpdateReferralCode(ctx context.Context, db *gorm.DB, id snowflake.ID, code string) error
	UpdatePlan(ctx context.Context, db *gorm.DB, id snowflake.ID, planPrice float64, billingCycle string, monthlyValue float64) error

	ListReferrals(ctx context.Context, db *gorm.DB, referrerID snowflake.ID, limit int) ([]Referral, error)
	CountReferredSince(ctx context.Context, db *gorm.DB, referrerID snowflake.ID, since time.Time) (int64, error)
	RecomputeTotalReferred(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	// RecomputeAllTotalReferred resets every member's counter from the
	// child-row count in one statement. Returns rows touched.
	RecomputeAllTotalReferred(ctx context.Context, db *gorm.DB) (int64, error)

	// CountHigherReferrers counts members with a strictly greater
	// total_referred, optionally scoped to one creator.
	CountHigherReferrers(ctx context.Context, db *gorm.DB, totalReferred int64, creatorID *snowflake.ID, exclude snowflake.ID) (int64, error)
	TopReferrers(ctx context.Context, db *gorm.DB, creatorID snowflake.ID, limit int) ([]TopReferrer, error)
}
