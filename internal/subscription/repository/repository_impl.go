package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	subscriptiondomain "github.com/smallbiznis/recurra/internal/subscription/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

const subscriptionColumns = `id, team_id, customer_id, delivery_area_id, street, number, neighborhood,
	city, state, zip, complement, status, start_date, monthly_price, created_at, updated_at`

const itemColumns = `id, subscription_id, product_id, frequency, delivery_days, biweekly_delivery_day,
	monthly_delivery_day, quantity, unit_price, created_at, updated_at`

// LoadSnapshot reads subscriptions and their items inside one transaction so an
// aggregation pass never mixes item states from before and after a concurrent update.
func (r *repo) LoadSnapshot(ctx context.Context, db *gorm.DB, filter subscriptiondomain.SnapshotFilter) (subscriptiondomain.Snapshot, error) {
	var snapshot subscriptiondomain.Snapshot
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE 1 = 1`
		args := make([]any, 0, 3)
		if filter.TeamID != 0 {
			query += ` AND team_id = ?`
			args = append(args, filter.TeamID)
		}
		if filter.CustomerID != 0 {
			query += ` AND customer_id = ?`
			args = append(args, filter.CustomerID)
		}
		if statuses := normalizeStatuses(filter.Statuses); len(statuses) > 0 {
			query += ` AND LOWER(status) IN ?`
			args = append(args, statuses)
		}
		query += ` ORDER BY created_at ASC, id ASC`

		if err := tx.Raw(query, args...).Scan(&snapshot.Subscriptions).Error; err != nil {
			return err
		}
		if len(snapshot.Subscriptions) == 0 {
			return nil
		}

		ids := make([]snowflake.ID, 0, len(snapshot.Subscriptions))
		for _, sub := range snapshot.Subscriptions {
			ids = append(ids, sub.ID)
		}
		return tx.Raw(
			`SELECT `+itemColumns+` FROM subscription_items
			 WHERE subscription_id IN ? ORDER BY created_at ASC, id ASC`,
			ids,
		).Scan(&snapshot.Items).Error
	})
	if err != nil {
		return subscriptiondomain.Snapshot{}, err
	}
	return snapshot, nil
}

func (r *repo) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*subscriptiondomain.Subscription, error) {
	var subscription subscriptiondomain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = ? FOR UPDATE`,
		id,
	).Scan(&subscription).Error
	if err != nil {
		return nil, err
	}
	if subscription.ID == 0 {
		return nil, nil
	}
	return &subscription, nil
}

func (r *repo) ItemsBySubscription(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) ([]subscriptiondomain.SubscriptionItem, error) {
	var items []subscriptiondomain.SubscriptionItem
	err := db.WithContext(ctx).Raw(
		`SELECT `+itemColumns+` FROM subscription_items
		 WHERE subscription_id = ? ORDER BY created_at ASC, id ASC`,
		subscriptionID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SubscriptionIDsByProduct(ctx context.Context, db *gorm.DB, teamID, productID snowflake.ID) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT DISTINCT si.subscription_id
		 FROM subscription_items si
		 JOIN subscriptions s ON s.id = si.subscription_id
		 WHERE s.team_id = ? AND si.product_id = ?
		 ORDER BY si.subscription_id ASC`,
		teamID,
		productID,
	).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *repo) UpdateItemUnitPrice(ctx context.Context, db *gorm.DB, teamID, productID snowflake.ID, unitPrice decimal.Decimal, now time.Time) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE subscription_items SET unit_price = ?, updated_at = ?
		 WHERE product_id = ?
		   AND subscription_id IN (SELECT id FROM subscriptions WHERE team_id = ?)`,
		unitPrice,
		now,
		productID,
		teamID,
	)
	return result.RowsAffected, result.Error
}

func (r *repo) UpdateMonthlyPrice(ctx context.Context, db *gorm.DB, id snowflake.ID, monthlyPrice decimal.Decimal, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscriptions SET monthly_price = ?, updated_at = ? WHERE id = ?`,
		monthlyPrice,
		now,
		id,
	).Error
}

func normalizeStatuses(statuses []string) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
