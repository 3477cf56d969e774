package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recurra/internal/pricing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, update *domain.PriceUpdate) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO price_updates (id, team_id, product_id, new_unit_price, effective_date,
		 affected_subscriptions, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		update.ID,
		update.TeamID,
		update.ProductID,
		update.NewUnitPrice,
		update.EffectiveDate,
		update.AffectedSubscriptions,
		update.CreatedAt,
		update.UpdatedAt,
	).Error
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.PriceUpdate, error) {
	var update domain.PriceUpdate
	err := db.WithContext(ctx).Raw(
		`SELECT id, team_id, product_id, new_unit_price, effective_date, applied_at,
		 affected_subscriptions, created_at, updated_at
		 FROM price_updates WHERE id = ? FOR UPDATE`,
		id,
	).Scan(&update).Error
	if err != nil {
		return nil, err
	}
	if update.ID == 0 {
		return nil, nil
	}
	return &update, nil
}

// ListDueIDs returns pending records whose effective date has arrived, oldest first.
func (r *repo) ListDueIDs(ctx context.Context, db *gorm.DB, asOf time.Time, limit int) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM price_updates
		 WHERE applied_at IS NULL AND effective_date <= ?
		 ORDER BY effective_date ASC, id ASC
		 LIMIT ?`,
		asOf,
		limit,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// MarkApplied only touches records still pending, so a second call is a no-op.
func (r *repo) MarkApplied(ctx context.Context, db *gorm.DB, id snowflake.ID, appliedAt time.Time, affected int) error {
	return db.WithContext(ctx).Exec(
		`UPDATE price_updates SET applied_at = ?, affected_subscriptions = ?, updated_at = ?
		 WHERE id = ? AND applied_at IS NULL`,
		appliedAt,
		affected,
		appliedAt,
		id,
	).Error
}
