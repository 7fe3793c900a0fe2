package domain

import (
	"context"
	"errors"
)

// UpsertRequest carries the fields a membership webhook supplies.
type UpsertRequest struct {
	MembershipID      string  `json:"membership_id"`
	CreatorExternalID string  `json:"creator_external_id"`
	Username          string  `json:"username"`
	Email             string  `json:"email"`
	PlanPrice         float64 `json:"plan_price"`
	BillingCycle      string  `json:"billing_cycle"`

	// ReferralCode is the code the new member signed up through, empty for
	// organic signups.
	ReferralCode string `json:"referral_code"`
}

type UpdateReferralCodeRequest struct {
	MemberID string `json:"-"`
	Code     string `json:"code"`
}

type Service interface {
	Upsert(ctx context.Context, req UpsertRequest) (*Member, error)
	GetByID(ctx context.Context, id string) (*Member, error)
	GetByMembershipID(ctx context.Context, membershipID string) (*Member, error)
	UpdateReferralCode(ctx context.Context, req UpdateReferralCodeRequest) (*Member, error)
	ListReferrals(ctx context.Context, memberID string, limit int) ([]Referral, error)

	// RecomputeTotalReferred refreshes the derived referral counter from the
	// child-row count. The single write path for the projection.
	RecomputeTotalReferred(ctx context.Context, memberID string) (int64, error)
}

var (
	ErrMemberNotFound      = errors.New("member_not_found")
	ErrInvalidMember       = errors.New("invalid_member")
	ErrInvalidReferralCode = errors.New("invalid_referral_code")
	ErrReferralCodeTaken   = errors.New("referral_code_taken")
	ErrUnknownCreator      = errors.New("unknown_creator")
)
