package repository

import (
	"context"
	"errors"
	"time"

	"github.com/blackbridgeaiagency-star/flywheel/internal/commission/domain"
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, commission *domain.Commission) error {
	return db.WithContext(ctx).Create(commission).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Commission, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByExternalPaymentID(ctx context.Context, db *gorm.DB, externalPaymentID string) (*domain.Commission, error) {
	return r.findOne(ctx, db, "external_payment_id = ?", externalPaymentID)
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, arg any) (*domain.Commission, error) {
	var commission domain.Commission
	err := db.WithContext(ctx).Where(query, arg).First(&commission).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &commission, nil
}

func (r *repo) MarkRefunded(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).
		Model(&domain.Commission{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     domain.StatusRefunded,
			"updated_at": time.Now().UTC(),
		}).Error
}

func (r *repo) SumMemberShare(ctx context.Context, db *gorm.DB, referrerID snowflake.ID, window domain.Window) (float64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Commission{}).
		Where("referrer_id = ? AND status = ?", referrerID, domain.StatusPaid)
	stmt = applyWindow(stmt, window)

	var total float64
	err := stmt.Select("COALESCE(SUM(member_share), 0)").Scan(&total).Error
	return total, err
}

func (r *repo) PaidReferralCount(ctx context.Context, db *gorm.DB, referrerID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(DISTINCT member_id)
		 FROM commissions
		 WHERE referrer_id = ? AND status = ?`,
		referrerID,
		domain.StatusPaid,
	).Scan(&count).Error
	return count, err
}

func (r *repo) EarningsSince(ctx context.Context, db *gorm.DB, referrerID snowflake.ID, since time.Time) ([]domain.Commission, error) {
	var rows []domain.Commission
	err := db.WithContext(ctx).
		Select("id", "member_share", "created_at").
		Where("referrer_id = ? AND status = ? AND created_at >= ?", referrerID, domain.StatusPaid, since).
		Order("created_at asc").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) CountMembersEarningAbove(ctx context.Context, db *gorm.DB, threshold float64, exclude snowflake.ID) (int64, error) {
	// Rounding both sides to cents keeps float summation noise from
	// flipping adjacent ranks.
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(*) FROM (
			SELECT referrer_id
			FROM commissions
			WHERE status = ? AND referrer_id IS NOT NULL AND referrer_id <> ?
			GROUP BY referrer_id
			HAVING ROUND(SUM(member_share), 2) >= ROUND(?, 2) + 0.01
		 ) AS higher`,
		domain.StatusPaid,
		exclude,
		threshold,
	).Scan(&count).Error
	return count, err
}

func (r *repo) PartitionRevenue(ctx context.Context, db *gorm.DB, creatorID snowflake.ID, window domain.Window) (domain.RevenuePartition, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Commission{}).
		Where("creator_id = ? AND status = ?", creatorID, domain.StatusPaid)
	stmt = applyWindow(stmt, window)

	var partition domain.RevenuePartition
	err := stmt.Select(
		`COALESCE(SUM(CASE WHEN referrer_id IS NULL THEN sale_amount ELSE 0 END), 0) AS organic_revenue,
		 COALESCE(SUM(CASE WHEN referrer_id IS NULL THEN 1 ELSE 0 END), 0) AS organic_count,
		 COALESCE(SUM(CASE WHEN referrer_id IS NOT NULL THEN sale_amount ELSE 0 END), 0) AS referred_revenue,
		 COALESCE(SUM(CASE WHEN referrer_id IS NOT NULL THEN 1 ELSE 0 END), 0) AS referred_count,
		 COALESCE(SUM(CASE WHEN referrer_id IS NOT NULL THEN member_share ELSE 0 END), 0) AS referred_member_share`,
	).Scan(&partition).Error
	return partition, err
}

func (r *repo) SumCreatorRevenue(ctx context.Context, db *gorm.DB, creatorID snowflake.ID, window domain.Window) (float64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Commission{}).
		Where("creator_id = ? AND status = ?", creatorID, domain.StatusPaid)
	stmt = applyWindow(stmt, window)

	var total float64
	err := stmt.Select("COALESCE(SUM(sale_amount), 0)").Scan(&total).Error
	return total, err
}

func (r *repo) ListUninvoicedReferred(ctx context.Context, db *gorm.DB, creatorID snowflake.ID, window domain.Window) ([]domain.Commission, error) {
	stmt := db.WithContext(ctx).
		Where("creator_id = ? AND status = ? AND referrer_id IS NOT NULL AND platform_fee_invoiced = ?",
			creatorID, domain.StatusPaid, false)
	stmt = applyWindow(stmt, window)

	var rows []domain.Commission
	err := stmt.Order("created_at asc, id asc").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) MarkInvoiced(ctx context.Context, db *gorm.DB, ids []snowflake.ID, invoiceID snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := db.WithContext(ctx).
		Model(&domain.Commission{}).
		Where("id IN ? AND platform_fee_invoiced = ?", ids, false).
		Updates(map[string]any{
			"platform_fee_invoiced": true,
			"invoice_id":            invoiceID,
			"updated_at":            time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func (r *repo) TopEarners(ctx context.Context, db *gorm.DB, creatorID snowflake.ID, window domain.Window, limit int) ([]domain.TopEarner, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT m.id AS member_id, m.username, m.referral_code, SUM(c.member_share) AS total
		 FROM commissions c
		 JOIN members m ON m.id = c.referrer_id
		 WHERE c.creator_id = ? AND c.status = ? AND c.referrer_id IS NOT NULL`
	args := []any{creatorID, domain.StatusPaid}
	if !window.From.IsZero() {
		query += ` AND c.created_at >= ?`
		args = append(args, window.From)
	}
	if !window.To.IsZero() {
		query += ` AND c.created_at < ?`
		args = append(args, window.To)
	}
	query += ` GROUP BY m.id, m.username, m.referral_code
		 ORDER BY total DESC
		 LIMIT ?`
	args = append(args, limit)

	var rows []domain.TopEarner
	err := db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func applyWindow(stmt *gorm.DB, window domain.Window) *gorm.DB {
	if !window.From.IsZero() {
		stmt = stmt.Where("created_at >= ?", window.From)
	}
	if !window.To.IsZero() {
		stmt = stmt.Where("created_at < ?", window.To)
	}
	return stmt
}
