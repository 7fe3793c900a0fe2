package earnings_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/blackbridgeaiagency-star/flywheel/internal/clock"
	commissiondomain "github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
	commissionrepo "github.com/blackbridgeaiagency-star/flywheel/internal/commission/repository"
	"github.com/blackbridgeaiagency-star/flywheel/internal/earnings"
	memberdomain "github.com/blackbridgeaiagency-star/flywheel/internal/member/domain"
	memberrepo "github.com/blackbridgeaiagency-star/flywheel/internal/member/repository"
	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func TestTrend(t *testing.T) {
	cases := []struct {
		current  float64
		previous float64
		want     float64
	}{
		{50, 0, 100},
		{0, 0, 0},
		{150, 100, 50},
		{50, 100, -50},
		{100, 100, 0},
		{0, 80, -100},
	}
	for _, tc := range cases {
		if got := earnings.Trend(tc.current, tc.previous); got != tc.want {
			t.Errorf("Trend(%v, %v) = %v, want %v", tc.current, tc.previous, got, tc.want)
		}
	}
}

func TestSummarizeMonthlyAndLifetime(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)

	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	fake := clock.NewFakeClock(now)

	creatorID := node.Generate()
	referrer := seedMember(t, db, node, creatorID, nil)
	second := seedMember(t, db, node, creatorID, &referrer.ID)

	// Three paid sales this month earn the referrer {10, 20, 30}.
	for i, share := range []float64{10, 20, 30} {
		seedCommission(t, db, node, commissionRow{
			creatorID:  creatorID,
			memberID:   second.ID,
			referrerID: &referrer.ID,
			share:      share,
			createdAt:  now.AddDate(0, 0, -i),
		})
	}
	// One sale last month and one refunded row that must not count.
	seedCommission(t, db, node, commissionRow{
		creatorID:  creatorID,
		memberID:   second.ID,
		referrerID: &referrer.ID,
		share:      40,
		createdAt:  now.AddDate(0, -1, 0),
	})
	seedCommission(t, db, node, commissionRow{
		creatorID:  creatorID,
		memberID:   second.ID,
		referrerID: &referrer.ID,
		share:      500,
		status:     commissiondomain.StatusRefunded,
		createdAt:  now,
	})

	svc := newService(db, fake)
	summary, err := svc.Summarize(ctx, referrer.ID.String())
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if summary.MonthlyEarnings != 60 {
		t.Errorf("monthly = %v, want 60", summary.MonthlyEarnings)
	}
	if summary.LifetimeEarnings != 100 {
		t.Errorf("lifetime = %v, want 100", summary.LifetimeEarnings)
	}
	if summary.TrendPercent != 50 {
		t.Errorf("trend = %v, want 50", summary.TrendPercent)
	}
}

func TestSummarizeUnknownMember(t *testing.T) {
	db := setupTestDB(t)
	svc := newService(db, clock.NewFakeClock(time.Now()))

	if _, err := svc.Summarize(context.Background(), "not-an-id"); err != memberdomain.ErrMemberNotFound {
		t.Fatalf("err = %v, want ErrMemberNotFound", err)
	}
	node := newNode(t)
	if _, err := svc.Summarize(context.Background(), node.Generate().String()); err != memberdomain.ErrMemberNotFound {
		t.Fatalf("err = %v, want ErrMemberNotFound", err)
	}
}

func TestHistoryFillsEmptyMonths(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	node := newNode(t)

	now := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	fake := clock.NewFakeClock(now)

	creatorID := node.Generate()
	referrer := seedMember(t, db, node, creatorID, nil)
	referred := seedMember(t, db, node, creatorID, &referrer.ID)

	// Earnings only in April and June; the other four months must appear
	// as zero buckets.
	seedCommission(t, db, node, commissionRow{
		creatorID:  creatorID,
		memberID:   referred.ID,
		referrerID: &referrer.ID,
		share:      25,
		createdAt:  time.Date(2026, 4, 5, 0, 0, 0, 0, time.UTC),
	})
	seedCommission(t, db, node, commissionRow{
		creatorID:  creatorID,
		memberID:   referred.ID,
		referrerID: &referrer.ID,
		share:      75,
		createdAt:  time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	})

	svc := newService(db, fake)
	history, err := svc.History(ctx, referrer.ID, earnings.HistoryMonths)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != earnings.HistoryMonths {
		t.Fatalf("history length = %d, want %d", len(history), earnings.HistoryMonths)
	}
	if history[0].Month != 1 || history[5].Month != 6 {
		t.Fatalf("history spans %d..%d, want 1..6", history[0].Month, history[5].Month)
	}

	var total float64
	for _, bucket := range history {
		total += bucket.Earnings
		switch bucket.Month {
		case 4:
			if bucket.Earnings != 25 {
				t.Errorf("april = %v, want 25", bucket.Earnings)
			}
		case 6:
			if bucket.Earnings != 75 {
				t.Errorf("june = %v, want 75", bucket.Earnings)
			}
		default:
			if bucket.Earnings != 0 {
				t.Errorf("month %d = %v, want 0", bucket.Month, bucket.Earnings)
			}
		}
	}
	if total != 100 {
		t.Errorf("history total = %v, want 100", total)
	}
}

func newService(db *gorm.DB, clk clock.Clock) *earnings.Service {
	return earnings.New(earnings.ServiceParam{
		DB:             db,
		Log:            zap.NewNop(),
		Clock:          clk,
		CommissionRepo: commissionrepo.Provide(),
		MemberRepo:     memberrepo.Provide(),
	})
}

type commissionRow struct {
	creatorID  snowflake.ID
	memberID   snowflake.ID
	referrerID *snowflake.ID
	share      float64
	status     commissiondomain.CommissionStatus
	createdAt  time.Time
}

func seedCommission(t *testing.T, db *gorm.DB, node *snowflake.Node, row commissionRow) {
	t.Helper()
	status := row.status
	if status == "" {
		status = commissiondomain.StatusPaid
	}
	commission := commissiondomain.Commission{
		ID:                node.Generate(),
		CreatorID:         row.creatorID,
		MemberID:          row.memberID,
		ReferrerID:        row.referrerID,
		SaleAmount:        row.share * 10,
		MemberShare:       row.share,
		CreatorShare:      row.share * 7,
		PlatformShare:     row.share * 2,
		Status:            status,
		PaymentType:       commissiondomain.PaymentInitial,
		ExternalPaymentID: fmt.Sprintf("pay_%s", node.Generate()),
		CreatedAt:         row.createdAt,
		UpdatedAt:         row.createdAt,
	}
	if err := db.Create(&commission).Error; err != nil {
		t.Fatalf("seed commission: %v", err)
	}
}

func seedMember(t *testing.T, db *gorm.DB, node *snowflake.Node, creatorID snowflake.ID, referredBy *snowflake.ID) *memberdomain.Member {
	t.Helper()
	id := node.Generate()
	member := memberdomain.Member{
		ID:           id,
		CreatorID:    creatorID,
		MembershipID: fmt.Sprintf("mem_%s", id),
		Username:     fmt.Sprintf("user-%s", id.Base36()),
		ReferralCode: fmt.Sprintf("code-%s", id.Base36()),
		Origin:       memberdomain.OriginOrganic,
		ReferredBy:   referredBy,
	}
	if referredBy != nil {
		member.Origin = memberdomain.OriginReferred
	}
	if err := db.Create(&member).Error; err != nil {
		t.Fatalf("seed member: %v", err)
	}
	return &member
}

func newNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	return node
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:earnings_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&memberdomain.Member{}, &commissiondomain.Commission{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
