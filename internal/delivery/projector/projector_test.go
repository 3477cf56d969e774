package projector

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-sql/civil"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recurra/internal/delivery/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) domain.Date {
	return civil.Date{Year: y, Month: m, Day: d}
}

func activeSubscription(id snowflake.ID, start domain.Date) domain.Subscription {
	return domain.Subscription{
		ID:         id,
		CustomerID: id + 1000,
		TeamID:     1,
		Status:     domain.SubscriptionStatusActive,
		StartDate:  start,
		Address:    domain.Address{Street: "Rua A", Number: "10", Neighborhood: "Centro"},
	}
}

func weeklyItem(id, subID, productID snowflake.ID, qty int, days ...domain.Weekday) domain.Item {
	return domain.Item{
		ID:             id,
		SubscriptionID: subID,
		ProductID:      productID,
		Schedule:       domain.Weekly{Days: days},
		Quantity:       qty,
		UnitPrice:      decimal.NewFromInt(10),
	}
}

func TestProject_WeekView(t *testing.T) {
	start := day(2024, 1, 1)
	req := Request{
		Subscriptions: []domain.Subscription{activeSubscription(1, start)},
		Items: []domain.Item{
			weeklyItem(10, 1, 100, 2, domain.Monday, domain.Thursday),
			{ID: 11, SubscriptionID: 1, ProductID: 101, Schedule: domain.Monthly{Day: 3}, Quantity: 1},
		},
		Products: []domain.Product{
			{ID: 100, Name: "Bread", Category: "Bakery"},
			{ID: 101, Name: "Coffee", Category: "Drinks"},
		},
		Range: domain.WeekOf(day(2024, 1, 3)),
	}

	out, err := Project(req)
	require.NoError(t, err)
	require.Len(t, out.Occurrences, 3)

	assert.Equal(t, day(2024, 1, 1), out.Occurrences[0].Date)
	assert.Equal(t, "Bread", out.Occurrences[0].ProductName)
	assert.Equal(t, day(2024, 1, 3), out.Occurrences[1].Date)
	assert.Equal(t, "Coffee", out.Occurrences[1].ProductName)
	assert.Equal(t, day(2024, 1, 4), out.Occurrences[2].Date)
	assert.Equal(t, snowflake.ID(1001), out.Occurrences[2].CustomerID)
	assert.Empty(t, out.Skipped)
	assert.Zero(t, out.Placeholders)
}

func TestProject_InactiveSubscriptionsYieldNothing(t *testing.T) {
	start := day(2024, 1, 1)
	statuses := []domain.SubscriptionStatus{
		domain.SubscriptionStatusPaused,
		domain.SubscriptionStatusCancelled,
		domain.SubscriptionStatusPendingPayment,
		domain.SubscriptionStatusPastDue,
		domain.SubscriptionStatusTrial,
	}
	for _, status := range statuses {
		t.Run(string(status), func(t *testing.T) {
			sub := activeSubscription(1, start)
			sub.Status = status
			out, err := Project(Request{
				Subscriptions: []domain.Subscription{sub},
				Items:         []domain.Item{weeklyItem(10, 1, 100, 1, domain.Monday, domain.Tuesday, domain.Wednesday, domain.Thursday, domain.Friday, domain.Saturday, domain.Sunday)},
				Range:         domain.WeekOf(start),
			})
			require.NoError(t, err)
			assert.Empty(t, out.Occurrences)
		})
	}
}

func TestProject_MissingStartDateIgnored(t *testing.T) {
	sub := activeSubscription(1, domain.Date{})
	out, err := Project(Request{
		Subscriptions: []domain.Subscription{sub},
		Items:         []domain.Item{weeklyItem(10, 1, 100, 1, domain.Monday)},
		Range:         domain.WeekOf(day(2024, 1, 1)),
	})
	require.NoError(t, err)
	assert.Empty(t, out.Occurrences)
}

func TestProject_ZeroItems(t *testing.T) {
	out, err := Project(Request{
		Subscriptions: []domain.Subscription{activeSubscription(1, day(2024, 1, 1))},
		Range:         domain.SingleDay(day(2024, 1, 1)),
	})
	require.NoError(t, err)
	assert.Empty(t, out.Occurrences)
	assert.Empty(t, out.Skipped)
}

func TestProject_MissingProductUsesPlaceholder(t *testing.T) {
	start := day(2024, 1, 1)
	out, err := Project(Request{
		Subscriptions: []domain.Subscription{activeSubscription(1, start)},
		Items:         []domain.Item{weeklyItem(10, 1, 999, 4, domain.Monday)},
		Range:         domain.SingleDay(start),
	})
	require.NoError(t, err)
	require.Len(t, out.Occurrences, 1)
	assert.Equal(t, "Unknown product", out.Occurrences[0].ProductName)
	assert.Equal(t, "Uncategorized", out.Occurrences[0].Category)
	assert.Equal(t, 4, out.Occurrences[0].Quantity)
	assert.Equal(t, 1, out.Placeholders)
}

func TestProject_CustomLabels(t *testing.T) {
	start := day(2024, 1, 1)
	out, err := Project(Request{
		Subscriptions: []domain.Subscription{activeSubscription(1, start)},
		Items:         []domain.Item{weeklyItem(10, 1, 999, 1, domain.Monday)},
		Range:         domain.SingleDay(start),
		Labels:        domain.Labels{UnknownProduct: "Produto removido"},
	})
	require.NoError(t, err)
	require.Len(t, out.Occurrences, 1)
	assert.Equal(t, "Produto removido", out.Occurrences[0].ProductName)
	assert.Equal(t, "Uncategorized", out.Occurrences[0].Category)
}

func TestProject_MalformedItemSkippedOthersKept(t *testing.T) {
	start := day(2024, 1, 1)
	items := make([]domain.Item, 0, 10)
	for i := 0; i < 9; i++ {
		items = append(items, weeklyItem(snowflake.ID(10+i), 1, 100, 1, domain.Monday))
	}
	items = append(items, domain.Item{ID: 99, SubscriptionID: 1, ProductID: 100, Schedule: domain.Weekly{}, Quantity: 1})

	out, err := Project(Request{
		Subscriptions: []domain.Subscription{activeSubscription(1, start)},
		Items:         items,
		Products:      []domain.Product{{ID: 100, Name: "Bread", Category: "Bakery"}},
		Range:         domain.SingleDay(start),
	})
	require.NoError(t, err)
	assert.Len(t, out.Occurrences, 9)
	require.Len(t, out.Skipped, 1)
	assert.Equal(t, snowflake.ID(99), out.Skipped[0].ItemID)
	assert.Equal(t, domain.ErrEmptyDeliveryDays.Error(), out.Skipped[0].Reason)
}

func TestProject_OneOccurrencePerItemPerDate(t *testing.T) {
	start := day(2024, 1, 1)
	item := weeklyItem(10, 1, 100, 1, domain.Monday, domain.Monday)
	out, err := Project(Request{
		Subscriptions: []domain.Subscription{activeSubscription(1, start)},
		Items:         []domain.Item{item, item},
		Range:         domain.SingleDay(start),
	})
	require.NoError(t, err)
	assert.Len(t, out.Occurrences, 1)
}

func TestProject_InvalidRange(t *testing.T) {
	_, err := Project(Request{Range: domain.DateRange{Start: day(2024, 1, 2), End: day(2024, 1, 1)}})
	assert.ErrorIs(t, err, domain.ErrInvalidDateRange)

	_, err = Project(Request{Range: domain.DateRange{Start: day(2024, 1, 1), End: day(2025, 6, 1)}})
	assert.ErrorIs(t, err, domain.ErrDateRangeTooLong)
}

func TestProject_RestartableAndPure(t *testing.T) {
	start := day(2024, 1, 1)
	req := Request{
		Subscriptions: []domain.Subscription{activeSubscription(1, start)},
		Items:         []domain.Item{{ID: 10, SubscriptionID: 1, ProductID: 100, Schedule: domain.BiWeekly{Day: domain.Monday}, Quantity: 1}},
		Range:         domain.DateRange{Start: start, End: day(2024, 1, 31)},
	}
	first, err := Project(req)
	require.NoError(t, err)
	second, err := Project(req)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	require.Len(t, first.Occurrences, 3)
	assert.Equal(t, day(2024, 1, 15), first.Occurrences[1].Date)
}
