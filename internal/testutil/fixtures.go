package testutil

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SubscriptionRow seeds one subscription. Zero values get usable defaults.
type SubscriptionRow struct {
	ID           snowflake.ID
	TeamID       snowflake.ID
	CustomerID   snowflake.ID
	Street       string
	Number       string
	Neighborhood string
	Status       string
	StartDate    *time.Time
	MonthlyPrice string
}

// ItemRow seeds one subscription item.
type ItemRow struct {
	ID                  snowflake.ID
	SubscriptionID      snowflake.ID
	ProductID           snowflake.ID
	Frequency           string
	DeliveryDays        []string
	BiweeklyDeliveryDay *string
	MonthlyDeliveryDay  *int
	Quantity            int
	UnitPrice           string
}

// Day returns midnight UTC of the given date, the form DATE columns are stored in.
func Day(year int, month time.Month, day int) *time.Time {
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &t
}

func InsertProduct(t *testing.T, db *gorm.DB, id, teamID snowflake.ID, name, category, unitPrice string) {
	t.Helper()
	now := time.Now().UTC()
	err := db.Exec(
		`INSERT INTO products (id, team_id, name, category, unit_price, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, teamID, name, category, decimal.RequireFromString(unitPrice), now, now,
	).Error
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
}

func InsertSubscription(t *testing.T, db *gorm.DB, row SubscriptionRow) {
	t.Helper()
	if row.Status == "" {
		row.Status = "active"
	}
	if row.MonthlyPrice == "" {
		row.MonthlyPrice = "0"
	}
	now := time.Now().UTC()
	err := db.Exec(
		`INSERT INTO subscriptions (id, team_id, customer_id, street, number, neighborhood, status,
		 start_date, monthly_price, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.TeamID, row.CustomerID, row.Street, row.Number, row.Neighborhood, row.Status,
		row.StartDate, decimal.RequireFromString(row.MonthlyPrice), now, now,
	).Error
	if err != nil {
		t.Fatalf("insert subscription: %v", err)
	}
}

func InsertItem(t *testing.T, db *gorm.DB, row ItemRow) {
	t.Helper()
	if row.Quantity == 0 {
		row.Quantity = 1
	}
	if row.UnitPrice == "" {
		row.UnitPrice = "0"
	}
	now := time.Now().UTC()
	err := db.Exec(
		`INSERT INTO subscription_items (id, subscription_id, product_id, frequency, delivery_days,
		 biweekly_delivery_day, monthly_delivery_day, quantity, unit_price, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.SubscriptionID, row.ProductID, row.Frequency, pq.StringArray(row.DeliveryDays),
		row.BiweeklyDeliveryDay, row.MonthlyDeliveryDay, row.Quantity, decimal.RequireFromString(row.UnitPrice),
		now, now,
	).Error
	if err != nil {
		t.Fatalf("insert item: %v", err)
	}
}

func StringPtr(v string) *string { return &v }

func IntPtr(v int) *int { return &v }
