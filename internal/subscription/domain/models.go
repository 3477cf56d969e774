// Package domain contains persistence models for delivery subscriptions and their items.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	delivery "github.com/smallbiznis/recurra/internal/delivery/domain"
)

// Subscription is the stored form of a customer's recurring delivery agreement.
type Subscription struct {
	ID             snowflake.ID    `gorm:"primaryKey"`
	TeamID         snowflake.ID    `gorm:"not null;index"`
	CustomerID     snowflake.ID    `gorm:"not null;index"`
	DeliveryAreaID snowflake.ID    `gorm:"not null"`
	Street         string          `gorm:"type:text;not null"`
	Number         string          `gorm:"type:text;not null"`
	Neighborhood   string          `gorm:"type:text;not null"`
	City           string          `gorm:"type:text;not null"`
	State          string          `gorm:"type:text;not null"`
	Zip            string          `gorm:"type:text;not null"`
	Complement     string          `gorm:"type:text;not null"`
	Status         string          `gorm:"type:text;not null"`
	StartDate      *time.Time      `gorm:"type:date"`
	MonthlyPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CreatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Subscription) TableName() string { return "subscriptions" }

// IsActive reports whether the stored status is active, ignoring case.
func (s Subscription) IsActive() bool {
	return delivery.SubscriptionStatus(strings.ToLower(strings.TrimSpace(s.Status))) == delivery.SubscriptionStatusActive
}

// ToDelivery builds the engine snapshot of the subscription.
func (s Subscription) ToDelivery() delivery.Subscription {
	out := delivery.Subscription{
		ID:             s.ID,
		CustomerID:     s.CustomerID,
		TeamID:         s.TeamID,
		DeliveryAreaID: s.DeliveryAreaID,
		Address: delivery.Address{
			Street:       s.Street,
			Number:       s.Number,
			Neighborhood: s.Neighborhood,
			City:         s.City,
			State:        s.State,
			Zip:          s.Zip,
			Complement:   s.Complement,
		},
		Status:       delivery.SubscriptionStatus(strings.ToLower(strings.TrimSpace(s.Status))),
		MonthlyPrice: s.MonthlyPrice,
	}
	if s.StartDate != nil {
		// DATE columns come back as midnight UTC.
		out.StartDate = delivery.Date{Year: s.StartDate.Year(), Month: s.StartDate.Month(), Day: s.StartDate.Day()}
	}
	return out
}

// SubscriptionItem is one product delivered on its own frequency.
type SubscriptionItem struct {
	ID                  snowflake.ID    `gorm:"primaryKey"`
	SubscriptionID      snowflake.ID    `gorm:"not null;index"`
	ProductID           snowflake.ID    `gorm:"not null;index"`
	Frequency           string          `gorm:"type:text;not null"`
	DeliveryDays        pq.StringArray  `gorm:"type:text[]"`
	BiweeklyDeliveryDay *string         `gorm:"type:text"`
	MonthlyDeliveryDay  *int            `gorm:""`
	Quantity            int             `gorm:"not null"`
	UnitPrice           decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CreatedAt           time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (SubscriptionItem) TableName() string { return "subscription_items" }

// Schedule decodes the frequency-specific columns. Rows that cannot be decoded yield a
// delivery.Malformed carrying the reason.
func (i SubscriptionItem) Schedule() delivery.Schedule {
	freq, err := delivery.ParseFrequency(i.Frequency)
	if err != nil {
		return delivery.Malformed{Err: err}
	}

	switch freq {
	case delivery.FrequencyWeekly:
		days := make([]delivery.Weekday, 0, len(i.DeliveryDays))
		for _, raw := range i.DeliveryDays {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			day, err := delivery.ParseWeekday(raw)
			if err != nil {
				return delivery.Malformed{Err: err}
			}
			days = append(days, day)
		}
		return delivery.Weekly{Days: days}
	case delivery.FrequencyBiWeekly:
		if i.BiweeklyDeliveryDay == nil || strings.TrimSpace(*i.BiweeklyDeliveryDay) == "" {
			return delivery.Malformed{Err: delivery.ErrMissingSchedule}
		}
		day, err := delivery.ParseWeekday(*i.BiweeklyDeliveryDay)
		if err != nil {
			return delivery.Malformed{Err: err}
		}
		return delivery.BiWeekly{Day: day}
	case delivery.FrequencyMonthly:
		if i.MonthlyDeliveryDay == nil {
			return delivery.Malformed{Err: delivery.ErrMissingSchedule}
		}
		return delivery.Monthly{Day: *i.MonthlyDeliveryDay}
	default:
		return delivery.Malformed{Err: delivery.ErrUnknownFrequency}
	}
}

// ToDelivery builds the engine snapshot of the item.
func (i SubscriptionItem) ToDelivery() delivery.Item {
	return delivery.Item{
		ID:             i.ID,
		SubscriptionID: i.SubscriptionID,
		ProductID:      i.ProductID,
		Schedule:       i.Schedule(),
		Quantity:       i.Quantity,
		UnitPrice:      i.UnitPrice,
	}
}

// Snapshot is a consistent read of subscriptions and their items.
type Snapshot struct {
	Subscriptions []Subscription
	Items         []SubscriptionItem
}

// ToDelivery converts the whole snapshot for one engine pass.
func (s Snapshot) ToDelivery() ([]delivery.Subscription, []delivery.Item) {
	subs := make([]delivery.Subscription, 0, len(s.Subscriptions))
	for _, sub := range s.Subscriptions {
		subs = append(subs, sub.ToDelivery())
	}
	items := make([]delivery.Item, 0, len(s.Items))
	for _, item := range s.Items {
		items = append(items, item.ToDelivery())
	}
	return subs, items
}

// ProductIDs lists the distinct products referenced by the snapshot items.
func (s Snapshot) ProductIDs() []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(s.Items))
	out := make([]snowflake.ID, 0, len(s.Items))
	for _, item := range s.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		out = append(out, item.ProductID)
	}
	return out
}
