// Package domain contains persistence models for community members.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// MemberOrigin records how a member arrived.
type MemberOrigin string

const (
	OriginOrganic  MemberOrigin = "organic"
	OriginReferred MemberOrigin = "referred"
)

// Member is one participant in a creator's community.
//
// TotalReferred is a derived projection of child rows. It is recomputed by
// the member service; nothing else increments it, so it cannot drift from
// the row count it mirrors.
type Member struct {
	ID           snowflake.ID `gorm:"primaryKey"`
	CreatorID    snowflake.ID `gorm:"not null;index"`
	MembershipID string       `gorm:"type:text;not null;uniqueIndex"`
	Username     string       `gorm:"type:text;not null"`
	Email        string       `gorm:"type:text"`

	ReferralCode string        `gorm:"type:text;not null;uniqueIndex"`
	ReferredBy   *snowflake.ID `gorm:"index"`
	Origin       MemberOrigin  `gorm:"type:text;not null;default:'organic'"`

	TotalReferred int64 `gorm:"not null;default:0"`

	// PlanPrice is the nominal subscription price; MonthlyValue is its
	// monthly-equivalent so recurring-revenue sums stay comparable across
	// billing intervals.
	PlanPrice    float64 `gorm:"not null;default:0"`
	BillingCycle string  `gorm:"type:text;not null;default:'monthly'"`
	MonthlyValue float64 `gorm:"not null;default:0"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP;index"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Member) TableName() string { return "members" }

// Referral is the read model for one row of a member's referral list.
type Referral struct {
	MemberID     string    `json:"member_id"`
	Username     string    `json:"username"`
	Origin       string    `json:"origin"`
	MonthlyValue float64   `json:"monthly_value"`
	JoinedAt     time.Time `json:"joined_at"`
}

// TopReferrer is one leaderboard row ranked by referral count.
type TopReferrer struct {
	MemberID      string `json:"member_id"`
	Username      string `json:"username"`
	ReferralCode  string `json:"referral_code"`
	TotalReferred int64  `json:"total_referred"`
}
