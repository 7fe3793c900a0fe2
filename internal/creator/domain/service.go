package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateRequest struct {
	ExternalID  string       `json:"external_id"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	RewardTiers []RewardTier `json:"reward_tiers"`
}

type UpdateRewardTiersRequest struct {
	CreatorID   string       `json:"-"`
	RewardTiers []RewardTier `json:"reward_tiers"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Creator, error)
	GetByID(ctx context.Context, id string) (*Creator, error)
	GetByExternalID(ctx context.Context, externalID string) (*Creator, error)
	List(ctx context.Context) ([]*Creator, error)
	UpdateRewardTiers(ctx context.Context, req UpdateRewardTiersRequest) (*Creator, error)

	// RefreshRevenueSummary recomputes the cached revenue fields from the
	// commission ledger. It is the only code path allowed to write them.
	RefreshRevenueSummary(ctx context.Context, id snowflake.ID) (RevenueSummary, error)
}

var (
	ErrCreatorNotFound    = errors.New("creator_not_found")
	ErrInvalidCreator     = errors.New("invalid_creator")
	ErrDuplicateCreator   = errors.New("duplicate_creator")
	ErrInvalidRewardTiers = errors.New("invalid_reward_tiers")
)
