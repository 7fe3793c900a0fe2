package repository

import (
	"context"
	"errors"
	"time"

	"github.com/blackbridgeaiagency-star/flywheel/internal/member/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, member *domain.Member) error {
	return db.WithContext(ctx).Create(member).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Member, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByMembershipID(ctx context.Context, db *gorm.DB, membershipID string) (*domain.Member, error) {
	return r.findOne(ctx, db, "membership_id = ?", membershipID)
}

func (r *repo) FindByReferralCode(ctx context.Context, db *gorm.DB, code string) (*domain.Member, error) {
	return r.findOne(ctx, db, "referral_code = ?", code)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, arg any) (*domain.Member, error) {
	var member domain.Member
	err := db.WithContext(ctx).Where(query, arg).First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

func (r *repo) UpdateReferralCode(ctx context.Context, db *gorm.DB, id snowflake.ID, code string) error {
	return db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"referral_code": code,
			"updated_at":    time.Now().UTC(),
		}).Error
}

func (r *repo) UpdatePlan(ctx context.Context, db *gorm.DB, id snowflake.ID, planPrice float64, billingCycle string, monthlyValue float64) error {
	return db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"plan_price":    planPrice,
			"billing_cycle": billingCycle,
			"monthly_value": monthlyValue,
			"updated_at":    time.Now().UTC(),
		}).Error
}

func (r *repo) ListReferrals(ctx context.Context, db *gorm.DB, referrerID snowflake.ID, limit int) ([]domain.Referral, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []domain.Referral
	err := db.WithContext(ctx).Raw(
		`SELECT id AS member_id, username, origin, monthly_value, created_at AS joined_at
		 FROM members
		 WHERE referred_by = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		referrerID,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) CountReferredSince(ctx context.Context, db *gorm.DB, referrerID snowflake.ID, since time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("referred_by = ? AND created_at >= ?", referrerID, since).
		Count(&count).Error
	return count, err
}

func (r *repo) RecomputeTotalReferred(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("referred_by = ?", id).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	err = db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"total_referred": count,
			"updated_at":     time.Now().UTC(),
		}).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) RecomputeAllTotalReferred(ctx context.Context, db *gorm.DB) (int64, error) {
	// The derived table keeps mysql happy about updating a table referenced
	// in its own subquery.
	result := db.WithContext(ctx).Exec(
		`UPDATE members
		 SET total_referred = COALESCE((
			SELECT cnt FROM (
				SELECT referred_by AS rb, COUNT(*) AS cnt
				FROM members
				WHERE referred_by IS NOT NULL
				GROUP BY referred_by
			) AS counts WHERE counts.rb = members.id
		 ), 0)`,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) CountHigherReferrers(ctx context.Context, db *gorm.DB, totalReferred int64, creatorID *snowflake.ID, exclude snowflake.ID) (int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("total_referred > ?", totalReferred).
		Where("id <> ?", exclude)
	if creatorID != nil {
		stmt = stmt.Where("creator_id = ?", *creatorID)
	}
	var count int64
	err := stmt.Count(&count).Error
	return count, err
}

func (r *repo) TopReferrers(ctx context.Context, db *gorm.DB, creatorID snowflake.ID, limit int) ([]domain.TopReferrer, error) {
	if limit <= 0 {
		limit = 10
	}
	var rows []domain.TopReferrer
	err := db.WithContext(ctx).Raw(
		`SELECT id AS member_id, username, referral_code, total_referred
		 FROM members
		 WHERE creator_id = ? AND total_referred > 0
		 ORDER BY total_referred DESC, created_at ASC
		 LIMIT ?`,
		creatorID,
		limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
