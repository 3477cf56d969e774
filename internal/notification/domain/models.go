// Package domain holds the customer notification outbox model.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	KindPriceChanged = "price_changed"
)

// Notification is a customer-facing message waiting to be picked up by a delivery channel.
type Notification struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	TeamID     snowflake.ID      `json:"team_id" gorm:"not null"`
	CustomerID snowflake.ID      `json:"customer_id" gorm:"not null;index"`
	Kind       string            `json:"kind" gorm:"type:text;not null"`
	Title      string            `json:"title" gorm:"type:text;not null"`
	Message    string            `json:"message" gorm:"type:text;not null"`
	Link       string            `json:"link,omitempty" gorm:"type:text;not null"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:jsonb"`
	ReadAt     *time.Time        `json:"read_at,omitempty"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Notification) TableName() string { return "notifications" }
