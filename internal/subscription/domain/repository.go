package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SnapshotFilter narrows a snapshot read. Zero ids are ignored.
type SnapshotFilter struct {
	TeamID     snowflake.ID
	CustomerID snowflake.ID
	Statuses   []string
}

type Repository interface {
	LoadSnapshot(ctx context.Context, db *gorm.DB, filter SnapshotFilter) (Snapshot, error)
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	ItemsBySubscription(ctx context.Context, db *gorm.DB, subscriptionID snowflake.ID) ([]SubscriptionItem, error)
	SubscriptionIDsByProduct(ctx context.Context, db *gorm.DB, teamID, productID snowflake.ID) ([]snowflake.ID, error)
	UpdateItemUnitPrice(ctx context.Context, db *gorm.DB, teamID, productID snowflake.ID, unitPrice decimal.Decimal, now time.Time) (int64, error)
	UpdateMonthlyPrice(ctx context.Context, db *gorm.DB, id snowflake.ID, monthlyPrice decimal.Decimal, now time.Time) error
}

var (
	ErrNotFound  = errors.New("subscription_not_found")
	ErrInvalidID = errors.New("invalid_subscription_id")
)
