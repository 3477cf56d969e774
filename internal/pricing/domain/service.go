package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recurra/internal/pricing/reconciler"
)

type Service interface {
	ReconcileSubscription(ctx context.Context, subscriptionID string) (*ReconcileResponse, error)
	SchedulePriceUpdate(ctx context.Context, req SchedulePriceUpdateRequest) (*PriceUpdateResponse, error)
	ApplyDuePriceUpdates(ctx context.Context) (ApplyResult, error)
}

// ReconcileResponse describes one monthly price recalculation.
type ReconcileResponse struct {
	SubscriptionID       string                        `json:"subscription_id"`
	PreviousMonthlyPrice decimal.Decimal               `json:"previous_monthly_price"`
	MonthlyPrice         decimal.Decimal               `json:"monthly_price"`
	Changed              bool                          `json:"changed"`
	Notified             bool                          `json:"notified"`
	Contributions        []reconciler.ItemContribution `json:"contributions"`
	SkippedItems         int                           `json:"skipped_items"`
}

type SchedulePriceUpdateRequest struct {
	TeamID        string `json:"-"`
	ProductID     string `json:"product_id"`
	NewUnitPrice  string `json:"new_unit_price"`
	EffectiveDate string `json:"effective_date"`
}

type PriceUpdateResponse struct {
	ID            string          `json:"id"`
	TeamID        string          `json:"team_id"`
	ProductID     string          `json:"product_id"`
	NewUnitPrice  decimal.Decimal `json:"new_unit_price"`
	EffectiveDate string          `json:"effective_date"`
	AppliedAt     *time.Time      `json:"applied_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// ApplyResult summarizes one sweep over due price updates.
type ApplyResult struct {
	Due                   int `json:"due"`
	Applied               int `json:"applied"`
	AlreadyApplied        int `json:"already_applied"`
	SubscriptionsRepriced int `json:"subscriptions_repriced"`
}

// DefaultSweepBatchSize bounds how many records one sweep claims.
const DefaultSweepBatchSize = 100

var (
	ErrInvalidTeam          = errors.New("invalid_team")
	ErrInvalidSubscription  = errors.New("invalid_subscription")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
	ErrInvalidProduct       = errors.New("invalid_product")
	ErrProductNotFound      = errors.New("product_not_found")
	ErrInvalidUnitPrice     = errors.New("invalid_unit_price")
	ErrInvalidEffectiveDate = errors.New("invalid_effective_date")
	ErrEffectiveDateInPast  = errors.New("effective_date_in_past")
	ErrDuplicatePriceUpdate = errors.New("duplicate_price_update")
)
