package aggregate

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-sql/civil"
	"github.com/smallbiznis/recurra/internal/delivery/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) domain.Date {
	return civil.Date{Year: 2024, Month: time.January, Day: d}
}

var (
	homeA = domain.Address{Street: "Rua das Flores", Number: "12", Neighborhood: "Centro"}
	homeB = domain.Address{Street: "Av. Brasil", Number: "900", Neighborhood: "Jardim"}
)

func occ(d int, sub, customer snowflake.ID, product, category string, qty int, addr domain.Address) domain.Occurrence {
	return domain.Occurrence{
		Date:           day(d),
		SubscriptionID: sub,
		CustomerID:     customer,
		ItemID:         sub*10 + snowflake.ID(qty),
		ProductName:    product,
		Category:       category,
		Quantity:       qty,
		Address:        addr,
	}
}

func sample() []domain.Occurrence {
	return []domain.Occurrence{
		occ(2, 1, 100, "Bread", "Bakery", 2, homeA),
		occ(1, 1, 100, "Bread", "Bakery", 2, homeA),
		occ(1, 2, 200, "Milk", "Dairy", 3, homeA),
		occ(1, 3, 300, "Cheese", "Dairy", 1, homeB),
		occ(2, 3, 300, "Croissant", "Bakery", 5, homeB),
	}
}

func TestAggregate_ByDate(t *testing.T) {
	summary := Aggregate(sample())

	require.Len(t, summary.ByDate, 2)
	assert.Equal(t, DateSummary{Date: day(1), TotalQuantity: 6, Deliveries: 3, Customers: 3}, summary.ByDate[0])
	assert.Equal(t, DateSummary{Date: day(2), TotalQuantity: 7, Deliveries: 2, Customers: 2}, summary.ByDate[1])

	assert.Equal(t, 6, summary.CountOn(day(1)).TotalQuantity)
	assert.Equal(t, 0, summary.CountOn(day(9)).TotalQuantity)
}

func TestAggregate_AddressGroupingCollapsesSubscriptions(t *testing.T) {
	summary := Aggregate(sample())

	require.Len(t, summary.ByDateAndAddress, 4)
	first := summary.ByDateAndAddress[0]
	assert.Equal(t, day(1), first.Date)
	assert.Equal(t, "Rua das Flores, 12 - Centro", first.AddressKey)
	assert.Equal(t, 5, first.TotalQuantity)
	assert.Equal(t, []snowflake.ID{1, 2}, first.SubscriptionIDs)

	second := summary.ByDateAndAddress[1]
	assert.Equal(t, day(1), second.Date)
	assert.Equal(t, "Av. Brasil, 900 - Jardim", second.AddressKey)
	assert.Equal(t, []snowflake.ID{3}, second.SubscriptionIDs)
}

func TestAggregate_SameSubscriptionListedOncePerGroup(t *testing.T) {
	occs := []domain.Occurrence{
		occ(1, 1, 100, "Bread", "Bakery", 2, homeA),
		occ(1, 1, 100, "Milk", "Dairy", 1, homeA),
	}
	summary := Aggregate(occs)
	require.Len(t, summary.ByDateAndAddress, 1)
	assert.Equal(t, 3, summary.ByDateAndAddress[0].TotalQuantity)
	assert.Equal(t, []snowflake.ID{1}, summary.ByDateAndAddress[0].SubscriptionIDs)
}

func TestAggregate_MissingAddressUsesSentinel(t *testing.T) {
	occs := []domain.Occurrence{
		occ(1, 1, 100, "Bread", "Bakery", 1, domain.Address{}),
		occ(1, 2, 200, "Bread", "Bakery", 1, domain.Address{Number: "7"}),
	}
	summary := Aggregate(occs)
	require.Len(t, summary.ByDateAndAddress, 1)
	assert.Equal(t, "Address not informed", summary.ByDateAndAddress[0].AddressKey)
	assert.Equal(t, 2, summary.ByDateAndAddress[0].TotalQuantity)
}

func TestAggregate_ProductAndCategoryTotals(t *testing.T) {
	summary := Aggregate(sample())

	require.Len(t, summary.ByProduct, 4)
	assert.Equal(t, ProductSummary{ProductName: "Croissant", Category: "Bakery", Quantity: 5}, summary.ByProduct[0])
	assert.Equal(t, ProductSummary{ProductName: "Bread", Category: "Bakery", Quantity: 4}, summary.ByProduct[1])
	assert.Equal(t, ProductSummary{ProductName: "Milk", Category: "Dairy", Quantity: 3}, summary.ByProduct[2])
	assert.Equal(t, ProductSummary{ProductName: "Cheese", Category: "Dairy", Quantity: 1}, summary.ByProduct[3])

	require.Len(t, summary.ByCategory, 2)
	assert.Equal(t, CategorySummary{Category: "Bakery", Quantity: 9, Percent: 100}, summary.ByCategory[0])
	assert.Equal(t, "Dairy", summary.ByCategory[1].Category)
	assert.Equal(t, 4, summary.ByCategory[1].Quantity)
	assert.InDelta(t, 44.44, summary.ByCategory[1].Percent, 0.001)
}

func TestAggregate_TiesKeepEncounterOrder(t *testing.T) {
	occs := []domain.Occurrence{
		occ(1, 1, 100, "Zucchini", "Veg", 2, homeA),
		occ(1, 2, 200, "Apple", "Fruit", 2, homeA),
		occ(1, 3, 300, "Mango", "Fruit", 2, homeA),
	}
	products := Aggregate(occs).ByProduct
	require.Len(t, products, 3)
	assert.Equal(t, "Zucchini", products[0].ProductName)
	assert.Equal(t, "Apple", products[1].ProductName)
	assert.Equal(t, "Mango", products[2].ProductName)
}

func TestProductTotals_IndependentScopes(t *testing.T) {
	occs := sample()

	dayTotals := ProductTotals(occs, domain.SingleDay(day(1)))
	weekTotals := ProductTotals(occs, domain.WeekOf(day(1)))

	require.Len(t, dayTotals, 3)
	assert.Equal(t, "Milk", dayTotals[0].ProductName)
	assert.Equal(t, 2, dayTotals[1].Quantity)

	require.Len(t, weekTotals, 4)
	assert.Equal(t, 4, weekTotals[1].Quantity)

	again := ProductTotals(occs, domain.SingleDay(day(1)))
	assert.Equal(t, dayTotals, again)
}

func TestAggregate_Idempotent(t *testing.T) {
	occs := sample()
	before := append([]domain.Occurrence(nil), occs...)

	first := Aggregate(occs)
	second := Aggregate(occs)

	assert.Equal(t, first, second)
	assert.Equal(t, before, occs)
}

func TestAggregate_PlaceholdersForMissingLabels(t *testing.T) {
	occs := []domain.Occurrence{
		{Date: day(1), SubscriptionID: 1, Quantity: 2, Address: homeA},
		occ(1, 2, 200, "Milk", "Dairy", 1, homeA),
	}
	summary := New(domain.Labels{UnknownProduct: "???"}).Aggregate(occs)

	assert.Equal(t, 1, summary.Placeholders)
	require.Len(t, summary.ByProduct, 2)
	assert.Equal(t, "???", summary.ByProduct[0].ProductName)
	assert.Equal(t, "Uncategorized", summary.ByProduct[0].Category)
	assert.Equal(t, 2, summary.ByDate[0].Customers)
}

func TestAggregate_Empty(t *testing.T) {
	summary := Aggregate(nil)
	assert.Empty(t, summary.ByDate)
	assert.Empty(t, summary.ByDateAndAddress)
	assert.Empty(t, summary.ByProduct)
	assert.Empty(t, summary.ByCategory)
}

func TestNextDeliveries(t *testing.T) {
	var occs []domain.Occurrence
	for d := 1; d <= 8; d++ {
		occs = append(occs, occ(d, snowflake.ID(d), snowflake.ID(100+d), "Bread", "Bakery", 1, homeA))
	}
	groups := Aggregate(occs).ByDateAndAddress

	next := NextDeliveries(groups, day(3), 0)
	require.Len(t, next, DefaultPreviewLimit)
	assert.Equal(t, day(3), next[0].Date)
	assert.Equal(t, day(7), next[4].Date)

	assert.Len(t, NextDeliveries(groups, day(7), 5), 2)
	assert.Empty(t, NextDeliveries(groups, day(20), 5))
}
