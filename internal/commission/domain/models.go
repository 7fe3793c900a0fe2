// Package domain contains the commission ledger models. The ledger is the
// single source of truth for every earnings, ranking and invoicing figure;
// cached summary fields elsewhere are projections of it.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// CommissionStatus tracks the payment lifecycle of one sale.
type CommissionStatus string

const (
	StatusPaid     CommissionStatus = "paid"
	StatusPending  CommissionStatus = "pending"
	StatusRefunded CommissionStatus = "refunded"
)

// PaymentType distinguishes first payments from renewals.
type PaymentType string

const (
	PaymentInitial   PaymentType = "initial"
	PaymentRecurring PaymentType = "recurring"
)

// Commission is one sale's three-way revenue split. Rows are immutable once
// paid except for the invoicing flags, which flip exactly once when the
// platform fee is billed.
//
// Invariant for paid rows: MemberShare + CreatorShare + PlatformShare ==
// SaleAmount within float epsilon.
type Commission struct {
	ID        snowflake.ID  `gorm:"primaryKey"`
	CreatorID snowflake.ID  `gorm:"not null;index"`
	MemberID  snowflake.ID  `gorm:"not null;index"`
	// ReferrerID is the member whose code attributed the sale; nil for
	// organic sales.
	ReferrerID *snowflake.ID `gorm:"index"`

	SaleAmount    float64 `gorm:"not null"`
	MemberShare   float64 `gorm:"not null;default:0"`
	CreatorShare  float64 `gorm:"not null"`
	PlatformShare float64 `gorm:"not null;default:0"`

	Status      CommissionStatus `gorm:"type:text;not null;index"`
	PaymentType PaymentType      `gorm:"type:text;not null;default:'initial'"`

	PlatformFeeInvoiced bool          `gorm:"not null;default:false;index"`
	InvoiceID           *snowflake.ID `gorm:"index"`

	ExternalPaymentID string            `gorm:"type:text;not null;uniqueIndex"`
	Metadata          datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
	UpdatedAt         time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Commission) TableName() string { return "commissions" }

// RevenuePartition splits a creator's paid revenue into organic and referred
// cohorts over one window.
type RevenuePartition struct {
	OrganicRevenue      float64 `gorm:"column:organic_revenue"`
	OrganicCount        int64   `gorm:"column:organic_count"`
	ReferredRevenue     float64 `gorm:"column:referred_revenue"`
	ReferredCount       int64   `gorm:"column:referred_count"`
	ReferredMemberShare float64 `gorm:"column:referred_member_share"`
}

// MonthlyEarnings is one bucket of a member's earnings history.
type MonthlyEarnings struct {
	Year     int     `json:"year"`
	Month    int     `json:"month"`
	Earnings float64 `json:"earnings"`
}

// TopEarner is one leaderboard row ranked by commission earnings.
type TopEarner struct {
	MemberID     string  `gorm:"column:member_id" json:"member_id"`
	Username     string  `gorm:"column:username" json:"username"`
	ReferralCode string  `gorm:"column:referral_code" json:"referral_code"`
	Total        float64 `gorm:"column:total" json:"total"`
}
