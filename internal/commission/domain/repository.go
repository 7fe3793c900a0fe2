package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Window bounds a half-open [From, To) time range. Zero values leave that
// side unbounded.
type Window struct {
	From time.Time
	To   time.Time
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, commission *Commission) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Commission, error)
	FindByExternalPaymentID(ctx context.Context, db *gorm.DB, externalPaymentID string) (*Commission, error)
	MarkRefunded(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	// SumMemberShare totals paid member shares earned by a referrer.
	SumMemberShare(ctx context.Context, db *gorm.DB, referrerID snowflake.ID, window Window) (float64, error)
	// PaidReferralCount counts distinct referred members with at least one
	// paid commission attributed to the referrer.
	PaidReferralCount(ctx context.Context, db *gorm.DB, referrerID snowflake.ID) (int64, error)
	// EarningsSince lists paid (referrer, member_share, created_at) rows for
	// history bucketing.
	EarningsSince(ctx context.Context, db *gorm.DB, referrerID snowflake.ID, since time.Time) ([]Commission, error)

	// CountMembersEarningAbove counts distinct referrers whose rounded paid
	// member-share sum is at least threshold + one cent, excluding one
	// member. Feeds the global earnings rank.
	CountMembersEarningAbove(ctx context.Context, db *gorm.DB, threshold float64, exclude snowflake.ID) (int64, error)

	PartitionRevenue(ctx context.Context, db *gorm.DB, creatorID snowflake.ID, window Window) (RevenuePartition, error)
	SumCreatorRevenue(ctx context.Context, db *gorm.DB, creatorID snowflake.ID, window Window) (float64, error)

	// ListUninvoicedReferred returns paid referred commissions in-window that
	// have not yet been billed a platform fee.
	ListUninvoicedReferred(ctx context.Context, db *gorm.DB, creatorID snowflake.ID, window Window) ([]Commission, error)
	// MarkInvoiced flips the invoicing flag for the given rows, guarded by
	// platform_fee_invoiced = false so reruns cannot double-bill. Returns the
	// number of rows actually flipped.
	MarkInvoiced(ctx context.Context, db *gorm.DB, ids []snowflake.ID, invoiceID snowflake.ID) (int64, error)

	TopEarners(ctx context.Context, db *gorm.DB, creatorID snowflake.ID, window Window, limit int) ([]TopEarner, error)
}
