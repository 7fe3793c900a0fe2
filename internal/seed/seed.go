package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	commissiondomain "github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
	creatordomain "github.com/blackbridgeaiagency-star/flywheel/internal/creator/domain"
	memberdomain "github.com/blackbridgeaiagency-star/flywheel/internal/member/domain"
	"github.com/blackbridgeaiagency-star/flywheel/pkg/money"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	demoCreatorExternalID = "demo-community"
	demoCreatorName       = "Demo Community"
	demoCreatorSlug       = "demo-community"
	demoCreatorEmail      = "owner@demo.flywheel.dev"
)

// demoMemberCount includes one referrer plus its referred members.
const demoMemberCount = 6

// EnsureDemoData seeds a demo creator with a small referral graph and a
// commission ledger behind it, so a fresh dev instance has dashboards worth
// looking at. Safe to run on every startup.
func EnsureDemoData(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		creator, created, err := ensureDemoCreatorTx(ctx, tx, node)
		if err != nil || !created {
			return err
		}
		members, err := seedDemoMembersTx(ctx, tx, node, creator.ID)
		if err != nil {
			return err
		}
		return seedDemoCommissionsTx(ctx, tx, node, creator.ID, members)
	})
}

func ensureDemoCreatorTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (creatordomain.Creator, bool, error) {
	var creator creatordomain.Creator
	err := tx.WithContext(ctx).Where("external_id = ?", demoCreatorExternalID).First(&creator).Error
	if err == nil {
		return creator, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return creator, false, err
	}

	tiers, err := json.Marshal([]creatordomain.RewardTier{
		{ReferralCount: 5, Reward: "Free month"},
		{ReferralCount: 25, Reward: "Lifetime access"},
	})
	if err != nil {
		return creator, false, err
	}

	now := time.Now().UTC()
	creator = creatordomain.Creator{
		ID:          node.Generate(),
		ExternalID:  demoCreatorExternalID,
		Name:        demoCreatorName,
		Slug:        demoCreatorSlug,
		Email:       demoCreatorEmail,
		RewardTiers: tiers,
		Competition: datatypes.JSONMap{},
		Metadata:    datatypes.JSONMap{"seeded": true},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tx.WithContext(ctx).Create(&creator).Error; err != nil {
		return creator, false, err
	}
	return creator, true, nil
}

func seedDemoMembersTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, creatorID snowflake.ID) ([]memberdomain.Member, error) {
	now := time.Now().UTC()

	referrer := memberdomain.Member{
		ID:            node.Generate(),
		CreatorID:     creatorID,
		MembershipID:  "demo-mem-1",
		Username:      "alex_demo",
		Email:         "alex@demo.flywheel.dev",
		ReferralCode:  "alex-demo",
		Origin:        memberdomain.OriginOrganic,
		TotalReferred: demoMemberCount - 1,
		PlanPrice:     49,
		BillingCycle:  "monthly",
		MonthlyValue:  49,
		Metadata:      datatypes.JSONMap{},
		CreatedAt:     now.AddDate(0, -3, 0),
		UpdatedAt:     now,
	}
	if err := tx.WithContext(ctx).Create(&referrer).Error; err != nil {
		return nil, err
	}

	members := []memberdomain.Member{referrer}
	for i := 2; i <= demoMemberCount; i++ {
		m := memberdomain.Member{
			ID:           node.Generate(),
			CreatorID:    creatorID,
			MembershipID: fmt.Sprintf("demo-mem-%d", i),
			Username:     fmt.Sprintf("member_%d", i),
			ReferralCode: fmt.Sprintf("member-%d", i),
			ReferredBy:   &referrer.ID,
			Origin:       memberdomain.OriginReferred,
			PlanPrice:    49,
			BillingCycle: "monthly",
			MonthlyValue: 49,
			Metadata:     datatypes.JSONMap{},
			CreatedAt:    now.AddDate(0, 0, -7*i),
			UpdatedAt:    now,
		}
		if err := tx.WithContext(ctx).Create(&m).Error; err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, nil
}

func seedDemoCommissionsTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, creatorID snowflake.ID, members []memberdomain.Member) error {
	now := time.Now().UTC()
	referrer := members[0]

	// One organic sale by the referrer, then referred sales spread over the
	// trailing weeks so the earnings history is not a single spike.
	organic := commissiondomain.Commission{
		ID:                node.Generate(),
		CreatorID:         creatorID,
		MemberID:          referrer.ID,
		SaleAmount:        49,
		CreatorShare:      49,
		Status:            commissiondomain.StatusPaid,
		PaymentType:       commissiondomain.PaymentInitial,
		ExternalPaymentID: "demo-pay-1",
		Metadata:          datatypes.JSONMap{},
		CreatedAt:         now.AddDate(0, -3, 0),
		UpdatedAt:         now,
	}
	if err := tx.WithContext(ctx).Create(&organic).Error; err != nil {
		return err
	}

	for i, m := range members[1:] {
		memberShare := money.Round2(m.PlanPrice * 0.10)
		platformShare := money.Round2(m.PlanPrice * 0.20)
		row := commissiondomain.Commission{
			ID:                node.Generate(),
			CreatorID:         creatorID,
			MemberID:          m.ID,
			ReferrerID:        &referrer.ID,
			SaleAmount:        m.PlanPrice,
			MemberShare:       memberShare,
			CreatorShare:      m.PlanPrice - memberShare - platformShare,
			PlatformShare:     platformShare,
			Status:            commissiondomain.StatusPaid,
			PaymentType:       commissiondomain.PaymentInitial,
			ExternalPaymentID: fmt.Sprintf("demo-pay-%d", i+2),
			Metadata:          datatypes.JSONMap{},
			CreatedAt:         m.CreatedAt,
			UpdatedAt:         now,
		}
		if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
			return err
		}
	}
	return nil
}
