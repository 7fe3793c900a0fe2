// Package dashboard composes the member and creator read models from the
// aggregation services. Composition fans out concurrently; whether a failed
// sub-task fails the whole page depends on whether it is load-bearing (the
// subject and its earnings) or decoration (ranks, contribution split).
package dashboard

import (
	"context"
	"strings"

	"github.com/blackbridgeaiagency-star/flywheel/internal/clock"
	commissiondomain "github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
	creatordomain "github.com/blackbridgeaiagency-star/flywheel/internal/creator/domain"
	"github.com/blackbridgeaiagency-star/flywheel/internal/earnings"
	memberdomain "github.com/blackbridgeaiagency-star/flywheel/internal/member/domain"
	"github.com/blackbridgeaiagency-star/flywheel/internal/platformfee"
	"github.com/blackbridgeaiagency-star/flywheel/internal/ranking"
	"github.com/blackbridgeaiagency-star/flywheel/pkg/money"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const referralListLimit = 50

// MemberDashboard is the member-facing read model.
type MemberDashboard struct {
	MemberID            string                             `json:"member_id"`
	Username            string                             `json:"username"`
	ReferralCode        string                             `json:"referral_code"`
	LifetimeEarnings    float64                            `json:"lifetime_earnings"`
	MonthlyEarnings     float64                            `json:"monthly_earnings"`
	MonthlyTrend        float64                            `json:"monthly_trend"`
	TotalReferred       int64                              `json:"total_referred"`
	MonthlyReferred     int64                              `json:"monthly_referred"`
	GlobalEarningsRank  *int64                             `json:"global_earnings_rank"`
	GlobalReferralsRank *int64                             `json:"global_referrals_rank"`
	CommunityRank       *int64                             `json:"community_rank"`
	EarningsHistory     []commissiondomain.MonthlyEarnings `json:"earnings_history"`
	Referrals           []memberdomain.Referral            `json:"referrals"`
}

// RevenueStats is the creator dashboard's headline block.
type RevenueStats struct {
	TotalRevenue   float64                 `json:"total_revenue"`
	MonthlyRevenue float64                 `json:"monthly_revenue"`
	MonthlyReport  platformfee.ValueReport `json:"monthly_report"`
}

// CreatorDashboard is the creator-facing read model.
type CreatorDashboard struct {
	CreatorID    string                       `json:"creator_id"`
	Name         string                       `json:"name"`
	RevenueStats RevenueStats                 `json:"revenue_stats"`
	TopEarners   []commissiondomain.TopEarner `json:"top_earners"`
	TopReferrers []memberdomain.TopReferrer   `json:"top_referrers"`
	// TopPerformerContribution is the share of all member earnings this
	// period held by the top earner, as a 0-100 percent. Zero when it could
	// not be computed.
	TopPerformerContribution float64 `json:"top_performer_contribution"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	memberRepo     memberdomain.Repository
	creatorRepo    creatordomain.Repository
	commissionRepo commissiondomain.Repository
	earningsSvc    *earnings.Service
	rankingSvc     *ranking.Service
	feeSvc         *platformfee.Service
}

type ServiceParam struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	Clock          clock.Clock
	MemberRepo     memberdomain.Repository
	CreatorRepo    creatordomain.Repository
	CommissionRepo commissiondomain.Repository
	EarningsSvc    *earnings.Service
	RankingSvc     *ranking.Service
	FeeSvc         *platformfee.Service
}

func New(p ServiceParam) *Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("dashboard.service"),
		clock:          p.Clock,
		memberRepo:     p.MemberRepo,
		creatorRepo:    p.CreatorRepo,
		commissionRepo: p.CommissionRepo,
		earningsSvc:    p.EarningsSvc,
		rankingSvc:     p.RankingSvc,
		feeSvc:         p.FeeSvc,
	}
}

// MemberDashboard builds the member read model. Subject resolution and the
// earnings block must succeed; ranks degrade to nil on their own inside the
// ranking service.
func (s *Service) MemberDashboard(ctx context.Context, memberID string) (*MemberDashboard, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(memberID))
	if err != nil {
		return nil, memberdomain.ErrMemberNotFound
	}
	member, err := s.memberRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, memberdomain.ErrMemberNotFound
	}

	dash := &MemberDashboard{
		MemberID:      member.ID.String(),
		Username:      member.Username,
		ReferralCode:  member.ReferralCode,
		TotalReferred: member.TotalReferred,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		summary, err := s.earningsSvc.Summarize(gctx, member.ID.String())
		if err != nil {
			return err
		}
		dash.LifetimeEarnings = summary.LifetimeEarnings
		dash.MonthlyEarnings = summary.MonthlyEarnings
		dash.MonthlyTrend = summary.TrendPercent
		dash.MonthlyReferred = summary.MonthlyReferred
		dash.EarningsHistory = summary.History
		return nil
	})
	g.Go(func() error {
		referrals, err := s.memberRepo.ListReferrals(gctx, s.db, member.ID, referralListLimit)
		if err != nil {
			return err
		}
		dash.Referrals = referrals
		return nil
	})
	g.Go(func() error {
		ranks := s.rankingSvc.Ranks(gctx, member)
		dash.GlobalEarningsRank = ranks.GlobalEarningsRank
		dash.GlobalReferralsRank = ranks.GlobalReferralsRank
		dash.CommunityRank = ranks.CommunityRank
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dash, nil
}

// CreatorDashboard builds the creator read model for the current month.
func (s *Service) CreatorDashboard(ctx context.Context, creatorID string) (*CreatorDashboard, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(creatorID))
	if err != nil {
		return nil, creatordomain.ErrCreatorNotFound
	}
	creator, err := s.creatorRepo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if creator == nil {
		return nil, creatordomain.ErrCreatorNotFound
	}

	window := commissiondomain.Window{From: clock.StartOfMonth(s.clock.Now())}
	dash := &CreatorDashboard{
		CreatorID: creator.ID.String(),
		Name:      creator.Name,
	}

	var report *platformfee.ValueReport
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		r, err := s.feeSvc.ValueReport(gctx, creator.ID, window)
		if err != nil {
			return err
		}
		report = r
		return nil
	})
	g.Go(func() error {
		total, err := s.commissionRepo.SumCreatorRevenue(gctx, s.db, creator.ID, commissiondomain.Window{})
		if err != nil {
			return err
		}
		dash.RevenueStats.TotalRevenue = money.Round2(total)
		return nil
	})
	g.Go(func() error {
		// Leaderboards decorate the page; an empty board beats a dead page.
		earners, err := s.commissionRepo.TopEarners(gctx, s.db, creator.ID, window, 10)
		if err != nil {
			s.log.Warn("top earners degraded", zap.Error(err))
			return nil
		}
		dash.TopEarners = earners
		return nil
	})
	g.Go(func() error {
		referrers, err := s.memberRepo.TopReferrers(gctx, s.db, creator.ID, 10)
		if err != nil {
			s.log.Warn("top referrers degraded", zap.Error(err))
			return nil
		}
		dash.TopReferrers = referrers
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	dash.RevenueStats.MonthlyRevenue = money.Round2(report.OrganicRevenue + report.ReferredRevenue)
	dash.RevenueStats.MonthlyReport = *report
	dash.TopPerformerContribution = topPerformerContribution(dash.TopEarners, report)
	return dash, nil
}

// topPerformerContribution is decorative: any gap in its inputs yields 0.
func topPerformerContribution(earners []commissiondomain.TopEarner, report *platformfee.ValueReport) float64 {
	if len(earners) == 0 || report == nil {
		return 0
	}
	var totalShares float64
	for _, e := range earners {
		totalShares += e.Total
	}
	if totalShares <= 0 {
		return 0
	}
	return money.Round2(earners[0].Total / totalShares * 100)
}
