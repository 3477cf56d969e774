// Package domain defines price-update records and the pricing service contract.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// PriceUpdate is a pending change of a product's unit price that takes effect on
// EffectiveDate. AppliedAt is set exactly once, by the sweep that applied it.
type PriceUpdate struct {
	ID                    snowflake.ID    `gorm:"primaryKey"`
	TeamID                snowflake.ID    `gorm:"not null"`
	ProductID             snowflake.ID    `gorm:"not null"`
	NewUnitPrice          decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	EffectiveDate         time.Time       `gorm:"type:date;not null"`
	AppliedAt             *time.Time
	AffectedSubscriptions int       `gorm:"not null;default:0"`
	CreatedAt             time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt             time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (PriceUpdate) TableName() string { return "price_updates" }

// IsApplied reports whether the sweep already consumed the record.
func (p PriceUpdate) IsApplied() bool {
	return p.AppliedAt != nil
}
