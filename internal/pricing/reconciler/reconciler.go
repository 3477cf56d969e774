// Package reconciler derives a subscription's recurring monthly price from its items.
//
// The deliveries-per-month factors are statistical averages (4.33 weeks and 2.17
// fortnights per month). They intentionally do not match an exact count of the dates the
// calendar rules produce for a given month; billed amounts depend on these values.
package reconciler

import (
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recurra/internal/delivery/domain"
)

// CurrencyPlaces is the precision the final monthly price is rounded to.
const CurrencyPlaces = 2

var (
	// WeeksPerMonth approximates 365.25/12/7.
	WeeksPerMonth = decimal.RequireFromString("4.33")
	// BiWeeklyDeliveriesPerMonth approximates 365.25/12/14.
	BiWeeklyDeliveriesPerMonth = decimal.RequireFromString("2.17")
	// MonthlyDeliveriesPerMonth is exactly one.
	MonthlyDeliveriesPerMonth = decimal.NewFromInt(1)
)

// ItemContribution is one item's unrounded share of the monthly price.
type ItemContribution struct {
	ItemID             snowflake.ID    `json:"item_id"`
	DeliveriesPerMonth decimal.Decimal `json:"deliveries_per_month"`
	Subtotal           decimal.Decimal `json:"subtotal"`
}

// Result is the recalculated monthly price.
type Result struct {
	MonthlyPrice  decimal.Decimal      `json:"monthly_price"`
	Contributions []ItemContribution   `json:"contributions"`
	Skipped       []domain.SkippedItem `json:"skipped,omitempty"`
}

// DeliveriesPerMonth converts a schedule into its average monthly delivery count.
// Malformed schedules deliver zero times.
func DeliveriesPerMonth(schedule domain.Schedule) decimal.Decimal {
	if domain.ValidateSchedule(schedule) != nil {
		return decimal.Zero
	}
	switch s := schedule.(type) {
	case domain.Weekly:
		return decimal.NewFromInt(int64(s.DistinctDays())).Mul(WeeksPerMonth)
	case domain.BiWeekly:
		return BiWeeklyDeliveriesPerMonth
	case domain.Monthly:
		return MonthlyDeliveriesPerMonth
	default:
		return decimal.Zero
	}
}

// RecalculateMonthlyPrice sums quantity × unit price × deliveries per month over all items
// and rounds once, at the end. Malformed items contribute zero and are reported.
func RecalculateMonthlyPrice(items []domain.Item) Result {
	total := decimal.Zero
	res := Result{Contributions: make([]ItemContribution, 0, len(items))}

	for _, item := range items {
		err := item.Validate()
		if err == nil && item.UnitPrice.IsNegative() {
			err = domain.ErrInvalidUnitPrice
		}
		if err != nil {
			res.Skipped = append(res.Skipped, domain.SkippedItem{
				ItemID:         item.ID,
				SubscriptionID: item.SubscriptionID,
				Reason:         err.Error(),
			})
			continue
		}

		perMonth := DeliveriesPerMonth(item.Schedule)
		subtotal := decimal.NewFromInt(int64(item.Quantity)).Mul(item.UnitPrice).Mul(perMonth)
		total = total.Add(subtotal)
		res.Contributions = append(res.Contributions, ItemContribution{
			ItemID:             item.ID,
			DeliveriesPerMonth: perMonth,
			Subtotal:           subtotal,
		})
	}

	res.MonthlyPrice = total.Round(CurrencyPlaces)
	return res
}
