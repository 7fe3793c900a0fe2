// Package domain contains persistence models for community creators.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Creator owns a community whose sales flow through the referral program.
//
// TotalRevenue and MonthlyRevenue are display caches refreshed by the
// revenue-summary job; business logic always recomputes from the commission
// ledger instead of trusting them.
type Creator struct {
	ID                snowflake.ID `gorm:"primaryKey"`
	ExternalID        string       `gorm:"type:text;not null;uniqueIndex"`
	Name              string       `gorm:"type:text;not null"`
	Slug              string       `gorm:"type:text;not null;uniqueIndex"`
	Email             string       `gorm:"type:text"`
	BillingCustomerID string       `gorm:"type:text;index"`

	RewardTiers datatypes.JSON    `gorm:"type:jsonb"`
	Competition datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`

	TotalRevenue   float64 `gorm:"not null;default:0"`
	MonthlyRevenue float64 `gorm:"not null;default:0"`

	PendingRefundCredit    float64 `gorm:"not null;default:0"`
	LifetimeInvoicedAmount float64 `gorm:"not null;default:0"`
	LifetimeInvoicedCount  int64   `gorm:"not null;default:0"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Creator) TableName() string { return "creators" }

// RewardTier is one of the four configurable count/reward pairs a creator
// can offer on top of the platform commission tiers.
type RewardTier struct {
	ReferralCount int    `json:"referral_count"`
	Reward        string `json:"reward"`
}

// RevenueSummary is the recomputed truth behind the cached revenue fields.
type RevenueSummary struct {
	TotalRevenue   float64 `json:"total_revenue"`
	MonthlyRevenue float64 `json:"monthly_revenue"`
}
