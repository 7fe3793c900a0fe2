package service

import (
	"context"
	"fmt"
	"math/rand"
	"regexp"
	"strings"

	creatordomain "github.com/blackbridgeaiagency-star/flywheel/internal/creator/domain"
	"github.com/blackbridgeaiagency-star/flywheel/internal/member/domain"
	"github.com/blackbridgeaiagency-star/flywheel/pkg/db"
	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var referralCodePattern = regexp.MustCompile(`^[a-z0-9-]{4,20}$`)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	repo        domain.Repository
	creatorRepo creatordomain.Repository
}

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Repo        domain.Repository
	CreatorRepo creatordomain.Repository
}

func New(p ServiceParam) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("member.service"),
		genID:       p.GenID,
		repo:        p.Repo,
		creatorRepo: p.CreatorRepo,
	}
}

// Upsert creates the member on first sight of a membership id and refreshes
// plan fields on later events. Referral attribution is resolved exactly once,
// at creation.
func (s *Service) Upsert(ctx context.Context, req domain.UpsertRequest) (*domain.Member, error) {
	membershipID := strings.TrimSpace(req.MembershipID)
	if membershipID == "" {
		return nil, domain.ErrInvalidMember
	}

	existing, err := s.repo.FindByMembershipID(ctx, s.db, membershipID)
	if err != nil {
		return nil, err
	}

	cycle := normalizeBillingCycle(req.BillingCycle)
	monthly := NormalizeMonthlyValue(req.PlanPrice, cycle)

	if existing != nil {
		if req.PlanPrice != existing.PlanPrice || cycle != existing.BillingCycle {
			if err := s.repo.UpdatePlan(ctx, s.db, existing.ID, req.PlanPrice, cycle, monthly); err != nil {
				return nil, err
			}
			existing.PlanPrice = req.PlanPrice
			existing.BillingCycle = cycle
			existing.MonthlyValue = monthly
		}
		return existing, nil
	}

	creator, err := s.creatorRepo.FindByExternalID(ctx, s.db, strings.TrimSpace(req.CreatorExternalID))
	if err != nil {
		return nil, err
	}
	if creator == nil {
		return nil, domain.ErrUnknownCreator
	}

	member := &domain.Member{
		ID:           s.genID.Generate(),
		CreatorID:    creator.ID,
		MembershipID: membershipID,
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.TrimSpace(req.Email),
		Origin:       domain.OriginOrganic,
		PlanPrice:    req.PlanPrice,
		BillingCycle: cycle,
		MonthlyValue: monthly,
	}

	if code := normalizeCode(req.ReferralCode); code != "" {
		referrer, err := s.repo.FindByReferralCode(ctx, s.db, code)
		if err != nil {
			return nil, err
		}
		if referrer != nil && referrer.CreatorID == creator.ID {
			member.Origin = domain.OriginReferred
			member.ReferredBy = &referrer.ID
		}
	}

	member.ReferralCode = s.generateCode(member.Username)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for attempt := 0; ; attempt++ {
			insertErr := s.repo.Insert(ctx, tx, member)
			if insertErr == nil {
				return nil
			}
			if !db.IsDuplicateKeyErr(insertErr) || attempt >= 3 {
				return insertErr
			}
			member.ReferralCode = s.generateCode(member.Username)
		}
	})
	if err != nil {
		return nil, err
	}

	if member.ReferredBy != nil {
		if _, err := s.repo.RecomputeTotalReferred(ctx, s.db, *member.ReferredBy); err != nil {
			s.log.Warn("recompute total_referred failed",
				zap.String("referrer_id", member.ReferredBy.String()),
				zap.Error(err),
			)
		}
	}

	return member, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (*domain.Member, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, domain.ErrInvalidMember
	}
	member, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, domain.ErrMemberNotFound
	}
	return member, nil
}

func (s *Service) GetByMembershipID(ctx context.Context, membershipID string) (*domain.Member, error) {
	member, err := s.repo.FindByMembershipID(ctx, s.db, strings.TrimSpace(membershipID))
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, domain.ErrMemberNotFound
	}
	return member, nil
}

// UpdateReferralCode lets a member claim a vanity code. The format gate runs
// before any read so malformed input never touches the unique index.
func (s *Service) UpdateReferralCode(ctx context.Context, req domain.UpdateReferralCodeRequest) (*domain.Member, error) {
	member, err := s.GetByID(ctx, req.MemberID)
	if err != nil {
		return nil, err
	}

	code := normalizeCode(req.Code)
	if !referralCodePattern.MatchString(code) {
		return nil, domain.ErrInvalidReferralCode
	}
	if code == member.ReferralCode {
		return member, nil
	}

	holder, err := s.repo.FindByReferralCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if holder != nil && holder.ID != member.ID {
		return nil, domain.ErrReferralCodeTaken
	}

	if err := s.repo.UpdateReferralCode(ctx, s.db, member.ID, code); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrReferralCodeTaken
		}
		return nil, err
	}
	member.ReferralCode = code
	return member, nil
}

func (s *Service) ListReferrals(ctx context.Context, memberID string, limit int) ([]domain.Referral, error) {
	member, err := s.GetByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListReferrals(ctx, s.db, member.ID, limit)
}

func (s *Service) RecomputeTotalReferred(ctx context.Context, memberID string) (int64, error) {
	member, err := s.GetByID(ctx, memberID)
	if err != nil {
		return 0, err
	}
	return s.repo.RecomputeTotalReferred(ctx, s.db, member.ID)
}

func (s *Service) generateCode(username string) string {
	base := slug.Make(username)
	if len(base) > 12 {
		base = base[:12]
	}
	if len(base) < 4 {
		base = "member"
	}
	return fmt.Sprintf("%s-%04d", base, rand.Intn(10000))
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

func normalizeBillingCycle(cycle string) string {
	switch strings.ToLower(strings.TrimSpace(cycle)) {
	case "annual", "yearly", "year":
		return "annual"
	case "lifetime", "one_time", "once":
		return "lifetime"
	default:
		return "monthly"
	}
}

// NormalizeMonthlyValue converts a nominal plan price into its monthly
// equivalent. Lifetime plans amortize over 24 months, matching how creator
// revenue is reported.
func NormalizeMonthlyValue(planPrice float64, billingCycle string) float64 {
	if planPrice <= 0 {
		return 0
	}
	switch billingCycle {
	case "annual":
		return planPrice / 12
	case "lifetime":
		return planPrice / 24
	default:
		return planPrice
	}
}
