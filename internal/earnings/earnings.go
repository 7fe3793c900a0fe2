// Package earnings aggregates a member's commission earnings from the
// ledger. Nothing here is cached; every figure is recomputed from paid rows
// on each call.
package earnings

import (
	"context"
	"strings"
	"time"

	"github.com/blackbridgeaiagency-star/flywheel/internal/clock"
	commissiondomain "github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
	memberdomain "github.com/blackbridgeaiagency-star/flywheel/internal/member/domain"
	"github.com/blackbridgeaiagency-star/flywheel/pkg/money"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// HistoryMonths is how many trailing months the earnings history covers,
// current month included.
const HistoryMonths = 6

// Summary is one member's complete earnings picture.
type Summary struct {
	MemberID         string  `json:"member_id"`
	LifetimeEarnings float64 `json:"lifetime_earnings"`
	MonthlyEarnings  float64 `json:"monthly_earnings"`
	// TrendPercent compares this month against the previous one. A first
	// earning month reads as +100; two empty months read as 0.
	TrendPercent    float64                            `json:"trend_percent"`
	MonthlyReferred int64                              `json:"monthly_referred"`
	History         []commissiondomain.MonthlyEarnings `json:"history"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	commissionRepo commissiondomain.Repository
	memberRepo     memberdomain.Repository
}

type ServiceParam struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	Clock          clock.Clock
	CommissionRepo commissiondomain.Repository
	MemberRepo     memberdomain.Repository
}

func New(p ServiceParam) *Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("earnings.service"),
		clock:          p.Clock,
		commissionRepo: p.CommissionRepo,
		memberRepo:     p.MemberRepo,
	}
}

// Summarize builds the full earnings summary for one member.
func (s *Service) Summarize(ctx context.Context, memberID string) (*Summary, error) {
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

	now := s.clock.Now()
	monthStart := clock.StartOfMonth(now)
	prevStart := clock.StartOfPreviousMonth(now)

	lifetime, err := s.commissionRepo.SumMemberShare(ctx, s.db, member.ID, commissiondomain.Window{})
	if err != nil {
		return nil, err
	}
	monthly, err := s.commissionRepo.SumMemberShare(ctx, s.db, member.ID, commissiondomain.Window{From: monthStart})
	if err != nil {
		return nil, err
	}
	previous, err := s.commissionRepo.SumMemberShare(ctx, s.db, member.ID, MonthlyWindow(prevStart))
	if err != nil {
		return nil, err
	}
	monthlyReferred, err := s.memberRepo.CountReferredSince(ctx, s.db, member.ID, monthStart)
	if err != nil {
		return nil, err
	}
	history, err := s.History(ctx, member.ID, HistoryMonths)
	if err != nil {
		return nil, err
	}

	return &Summary{
		MemberID:         member.ID.String(),
		LifetimeEarnings: money.Round2(lifetime),
		MonthlyEarnings:  money.Round2(monthly),
		TrendPercent:     Trend(monthly, previous),
		MonthlyReferred:  monthlyReferred,
		History:          history,
	}, nil
}

// History buckets the member's paid earnings into trailing calendar months,
// oldest first. Months without earnings appear as zero rows so charts keep a
// continuous axis.
func (s *Service) History(ctx context.Context, memberID snowflake.ID, months int) ([]commissiondomain.MonthlyEarnings, error) {
	if months <= 0 {
		months = HistoryMonths
	}
	now := s.clock.Now()
	since := clock.StartOfMonth(now).AddDate(0, -(months - 1), 0)

	rows, err := s.commissionRepo.EarningsSince(ctx, s.db, memberID, since)
	if err != nil {
		return nil, err
	}

	// Bucketing happens here rather than in SQL so the same query works on
	// sqlite and postgres.
	buckets := make(map[string]float64, months)
	for _, row := range rows {
		buckets[row.CreatedAt.UTC().Format("2006-01")] += row.MemberShare
	}

	history := make([]commissiondomain.MonthlyEarnings, 0, months)
	for i := 0; i < months; i++ {
		month := since.AddDate(0, i, 0)
		history = append(history, commissiondomain.MonthlyEarnings{
			Year:     month.Year(),
			Month:    int(month.Month()),
			Earnings: money.Round2(buckets[month.Format("2006-01")]),
		})
	}
	return history, nil
}

// LifetimeEarnings returns the member's all-time paid earnings.
func (s *Service) LifetimeEarnings(ctx context.Context, memberID snowflake.ID) (float64, error) {
	total, err := s.commissionRepo.SumMemberShare(ctx, s.db, memberID, commissiondomain.Window{})
	return money.Round2(total), err
}

// MonthlyWindow returns the half-open window for the month containing t.
func MonthlyWindow(t time.Time) commissiondomain.Window {
	start := clock.StartOfMonth(t)
	return commissiondomain.Window{From: start, To: start.AddDate(0, 1, 0)}
}

// Trend expresses current against previous as a signed percentage. The two
// zero-denominator cases are pinned: earning anything after an empty month is
// +100, and two empty months in a row are flat.
func Trend(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return money.Round2((current - previous) / previous * 100)
}
