package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blackbridgeaiagency-star/flywheel/internal/clock"
	commissiondomain "github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
	"github.com/blackbridgeaiagency-star/flywheel/internal/creator/domain"
	"github.com/blackbridgeaiagency-star/flywheel/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// maxRewardTiers caps the configurable reward milestones per creator.
const maxRewardTiers = 4

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	repo           domain.Repository
	commissionRepo commissiondomain.Repository
}

type ServiceParam struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Repo           domain.Repository
	CommissionRepo commissiondomain.Repository
}

func New(p ServiceParam) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("creator.service"),
		genID:          p.GenID,
		clock:          p.Clock,
		repo:           p.Repo,
		commissionRepo: p.CommissionRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Creator, error) {
	externalID := strings.TrimSpace(req.ExternalID)
	name := strings.TrimSpace(req.Name)
	if externalID == "" || name == "" {
		return nil, domain.ErrInvalidCreator
	}
	if err := validateRewardTiers(req.RewardTiers); err != nil {
		return nil, err
	}

	existing, err := s.repo.FindByExternalID(ctx, s.db, externalID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrDuplicateCreator
	}

	tiers, err := json.Marshal(req.RewardTiers)
	if err != nil {
		return nil, err
	}

	creator := &domain.Creator{
		ID:          s.genID.Generate(),
		ExternalID:  externalID,
		Name:        name,
		Slug:        slug.Make(name),
		Email:       strings.TrimSpace(req.Email),
		RewardTiers: tiers,
		Competition: datatypes.JSONMap{},
		Metadata:    datatypes.JSONMap{},
	}

	for attempt := 0; ; attempt++ {
		insertErr := s.repo.Insert(ctx, s.db, creator)
		if insertErr == nil {
			break
		}
		if !db.IsDuplicateKeyErr(insertErr) || attempt >= 3 {
			return nil, insertErr
		}
		creator.Slug = fmt.Sprintf("%s-%s", slug.Make(name), creator.ID.Base36())
	}

	s.log.Info("creator created",
		zap.String("creator_id", creator.ID.String()),
		zap.String("slug", creator.Slug),
	)
	return creator, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Creator, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidCreator
	}
	creator, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if creator == nil {
		return nil, domain.ErrCreatorNotFound
	}
	return creator, nil
}

func (s *Service) GetByExternalID(ctx context.Context, externalID string) (*domain.Creator, error) {
	creator, err := s.repo.FindByExternalID(ctx, s.db, strings.TrimSpace(externalID))
	if err != nil {
		return nil, err
	}
	if creator == nil {
		return nil, domain.ErrCreatorNotFound
	}
	return creator, nil
}

func (s *Service) List(ctx context.Context) ([]*domain.Creator, error) {
	return s.repo.List(ctx, s.db)
}

func (s *Service) UpdateRewardTiers(ctx context.Context, req domain.UpdateRewardTiersRequest) (*domain.Creator, error) {
	creator, err := s.GetByID(ctx, req.CreatorID)
	if err != nil {
		return nil, err
	}
	if err := validateRewardTiers(req.RewardTiers); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateRewardTiers(ctx, s.db, creator.ID, req.RewardTiers); err != nil {
		return nil, err
	}
	tiers, err := json.Marshal(req.RewardTiers)
	if err != nil {
		return nil, err
	}
	creator.RewardTiers = tiers
	return creator, nil
}

// RefreshRevenueSummary recomputes the cached revenue fields from paid
// ledger rows and persists them.
func (s *Service) RefreshRevenueSummary(ctx context.Context, id snowflake.ID) (domain.RevenueSummary, error) {
	var summary domain.RevenueSummary

	total, err := s.commissionRepo.SumCreatorRevenue(ctx, s.db, id, commissiondomain.Window{})
	if err != nil {
		return summary, err
	}
	monthly, err := s.commissionRepo.SumCreatorRevenue(ctx, s.db, id, commissiondomain.Window{
		From: clock.StartOfMonth(s.clock.Now()),
	})
	if err != nil {
		return summary, err
	}

	summary = domain.RevenueSummary{TotalRevenue: total, MonthlyRevenue: monthly}
	if err := s.repo.UpdateRevenueSummary(ctx, s.db, id, summary); err != nil {
		return summary, err
	}
	return summary, nil
}

func validateRewardTiers(tiers []domain.RewardTier) error {
	if len(tiers) > maxRewardTiers {
		return domain.ErrInvalidRewardTiers
	}
	prev := 0
	for i, t := range tiers {
		if t.ReferralCount <= 0 || strings.TrimSpace(t.Reward) == "" {
			return domain.ErrInvalidRewardTiers
		}
		if i > 0 && t.ReferralCount <= prev {
			return domain.ErrInvalidRewardTiers
		}
		prev = t.ReferralCount
	}
	return nil
}
