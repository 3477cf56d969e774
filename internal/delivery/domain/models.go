package domain

import (
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-sql/civil"
	"github.com/shopspring/decimal"
)

// SubscriptionStatus represents lifecycle states for a delivery subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusActive         SubscriptionStatus = "active"
	SubscriptionStatusPaused         SubscriptionStatus = "paused"
	SubscriptionStatusCancelled      SubscriptionStatus = "cancelled"
	SubscriptionStatusPendingPayment SubscriptionStatus = "pending_payment"
	SubscriptionStatusPastDue        SubscriptionStatus = "past_due"
	SubscriptionStatusTrial          SubscriptionStatus = "trial"
)

// Address is where a subscription's deliveries go.
type Address struct {
	Street       string `json:"street"`
	Number       string `json:"number"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	State        string `json:"state"`
	Zip          string `json:"zip"`
	Complement   string `json:"complement,omitempty"`
}

// Subscription is an immutable snapshot used for one computation.
type Subscription struct {
	ID             snowflake.ID
	CustomerID     snowflake.ID
	TeamID         snowflake.ID
	DeliveryAreaID snowflake.ID
	Address        Address
	Status         SubscriptionStatus
	StartDate      Date
	MonthlyPrice   decimal.Decimal
}

// HasStartDate reports whether the start date was set.
func (s Subscription) HasStartDate() bool {
	return s.StartDate != (Date{})
}

// Item is a subscription line item snapshot.
type Item struct {
	ID             snowflake.ID
	SubscriptionID snowflake.ID
	ProductID      snowflake.ID
	Schedule       Schedule
	Quantity       int
	UnitPrice      decimal.Decimal
}

// Validate checks the schedule and quantity of an item.
func (i Item) Validate() error {
	if err := ValidateSchedule(i.Schedule); err != nil {
		return err
	}
	if i.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	return nil
}

// Product is catalog reference data used only for labeling.
type Product struct {
	ID       snowflake.ID
	Name     string
	Category string
}

// Occurrence is one concrete (date, item) pair where a delivery is due.
type Occurrence struct {
	Date           Date         `json:"date"`
	SubscriptionID snowflake.ID `json:"subscription_id"`
	CustomerID     snowflake.ID `json:"customer_id"`
	ItemID         snowflake.ID `json:"item_id"`
	ProductID      snowflake.ID `json:"product_id"`
	ProductName    string       `json:"product_name"`
	Category       string       `json:"category"`
	Quantity       int          `json:"quantity"`
	Address        Address      `json:"address"`
}

// SkippedItem records an item excluded because its data is malformed.
type SkippedItem struct {
	ItemID         snowflake.ID `json:"item_id"`
	SubscriptionID snowflake.ID `json:"subscription_id"`
	Reason         string       `json:"reason"`
}

// MaxRangeDays bounds the number of days a single projection may cover.
const MaxRangeDays = 366

// DateRange is a closed interval of civil dates.
type DateRange struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// SingleDay returns the range covering only d.
func SingleDay(d Date) DateRange {
	return DateRange{Start: d, End: d}
}

// WeekOf returns the Monday..Sunday range that contains d.
func WeekOf(d Date) DateRange {
	start := MondayOf(d)
	return DateRange{Start: start, End: start.AddDays(6)}
}

// MondayOf returns the Monday that starts the week of d.
func MondayOf(d Date) Date {
	offset := (int(d.In(time.UTC).Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// Validate rejects inverted, invalid or oversized ranges.
func (r DateRange) Validate() error {
	if !r.Start.IsValid() || !r.End.IsValid() {
		return ErrInvalidDate
	}
	if r.End.Before(r.Start) {
		return ErrInvalidDateRange
	}
	if r.End.DaysSince(r.Start)+1 > MaxRangeDays {
		return ErrDateRangeTooLong
	}
	return nil
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days lists every date of the range in ascending order.
func (r DateRange) Days() []Date {
	if r.End.Before(r.Start) {
		return nil
	}
	out := make([]Date, 0, r.End.DaysSince(r.Start)+1)
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(raw string) (Date, error) {
	d, err := civil.ParseDate(raw)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return d, nil
}

var (
	ErrUnknownFrequency  = errors.New("unknown_frequency")
	ErrMissingSchedule   = errors.New("missing_schedule")
	ErrEmptyDeliveryDays = errors.New("empty_delivery_days")
	ErrInvalidWeekday    = errors.New("invalid_weekday")
	ErrInvalidMonthDay   = errors.New("invalid_month_day")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrInvalidUnitPrice  = errors.New("invalid_unit_price")
	ErrInvalidDate       = errors.New("invalid_date")
	ErrInvalidDateRange  = errors.New("invalid_date_range")
	ErrDateRangeTooLong  = errors.New("date_range_too_long")
)
