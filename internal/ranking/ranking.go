// Package ranking positions a member against the rest of the program: by
// lifetime earnings globally, and by referral count both globally and within
// their creator's community.
package ranking

import (
	"context"

	commissiondomain "github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
	memberdomain "github.com/blackbridgeaiagency-star/flywheel/internal/member/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Ranks holds a member's three leaderboard positions. A nil field means the
// rank could not be computed; callers render it as unknown rather than
// failing the page.
type Ranks struct {
	GlobalEarningsRank  *int64 `json:"global_earnings_rank"`
	GlobalReferralsRank *int64 `json:"global_referrals_rank"`
	CommunityRank       *int64 `json:"community_rank"`
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	commissionRepo commissiondomain.Repository
	memberRepo     memberdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	CommissionRepo commissiondomain.Repository
	MemberRepo     memberdomain.Repository
}

func New(p ServiceParam) *Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("ranking.service"),
		commissionRepo: p.CommissionRepo,
		memberRepo:     p.MemberRepo,
	}
}

// Ranks computes all three positions for a member. Ranks are decoration on
// the dashboard, so any query failure degrades the whole set to nil instead
// of surfacing an error.
//
// The earnings rank counts members whose rounded lifetime earnings exceed
// the subject's by at least one cent; ties share a position. Referral ranks
// use a strict count comparison on the derived counter.
func (s *Service) Ranks(ctx context.Context, member *memberdomain.Member) Ranks {
	var ranks Ranks
	if member == nil {
		return ranks
	}

	lifetime, err := s.commissionRepo.SumMemberShare(ctx, s.db, member.ID, commissiondomain.Window{})
	if err != nil {
		return s.degrade(member, err)
	}
	higherEarners, err := s.commissionRepo.CountMembersEarningAbove(ctx, s.db, lifetime, member.ID)
	if err != nil {
		return s.degrade(member, err)
	}
	higherGlobal, err := s.memberRepo.CountHigherReferrers(ctx, s.db, member.TotalReferred, nil, member.ID)
	if err != nil {
		return s.degrade(member, err)
	}
	higherCommunity, err := s.memberRepo.CountHigherReferrers(ctx, s.db, member.TotalReferred, &member.CreatorID, member.ID)
	if err != nil {
		return s.degrade(member, err)
	}

	earningsRank := higherEarners + 1
	globalRank := higherGlobal + 1
	communityRank := higherCommunity + 1
	ranks.GlobalEarningsRank = &earningsRank
	ranks.GlobalReferralsRank = &globalRank
	ranks.CommunityRank = &communityRank
	return ranks
}

func (s *Service) degrade(member *memberdomain.Member, err error) Ranks {
	s.log.Warn("rank computation degraded",
		zap.String("member_id", member.ID.String()),
		zap.Error(err),
	)
	return Ranks{}
}
