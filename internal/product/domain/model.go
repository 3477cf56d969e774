package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	delivery "github.com/smallbiznis/recurra/internal/delivery/domain"
)

type Product struct {
	ID        snowflake.ID    `json:"id" gorm:"primaryKey"`
	TeamID    snowflake.ID    `json:"team_id" gorm:"not null;index"`
	Name      string          `json:"name" gorm:"type:text;not null"`
	Category  string          `json:"category" gorm:"type:text;not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Product) TableName() string { return "products" }

// ToDelivery keeps only the labeling fields the engine needs.
func (p Product) ToDelivery() delivery.Product {
	return delivery.Product{ID: p.ID, Name: p.Name, Category: p.Category}
}

// ToDeliveryProducts converts a catalog slice.
func ToDeliveryProducts(products []Product) []delivery.Product {
	out := make([]delivery.Product, 0, len(products))
	for _, p := range products {
		out = append(out, p.ToDelivery())
	}
	return out
}
