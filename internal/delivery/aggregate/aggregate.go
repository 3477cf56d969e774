// Package aggregate groups delivery occurrences into the summaries shown on dashboards
// and production sheets.
package aggregate

import (
	"math"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recurra/internal/delivery/domain"
)

// DefaultPreviewLimit is how many groups a "next deliveries" preview shows.
const DefaultPreviewLimit = 5

// DateSummary is the workload of one date.
type DateSummary struct {
	Date          domain.Date `json:"date"`
	TotalQuantity int         `json:"total_quantity"`
	Deliveries    int         `json:"deliveries"`
	Customers     int         `json:"customers"`
}

// DeliveryGroup is every delivery due at one address on one date.
type DeliveryGroup struct {
	Date            domain.Date    `json:"date"`
	AddressKey      string         `json:"address_key"`
	Address         domain.Address `json:"address"`
	TotalQuantity   int            `json:"total_quantity"`
	SubscriptionIDs []snowflake.ID `json:"subscription_ids"`
}

// ProductSummary is the quantity of one product within a scope.
type ProductSummary struct {
	ProductName string `json:"product_name"`
	Category    string `json:"category"`
	Quantity    int    `json:"quantity"`
}

// CategorySummary is the quantity of one category within a scope. Percent is relative to
// the largest category, not to the grand total.
type CategorySummary struct {
	Category string  `json:"category"`
	Quantity int     `json:"quantity"`
	Percent  float64 `json:"percent"`
}

// Summary holds every grouping of one aggregation pass.
type Summary struct {
	ByDate           []DateSummary     `json:"by_date"`
	ByDateAndAddress []DeliveryGroup   `json:"by_date_and_address"`
	ByProduct        []ProductSummary  `json:"by_product"`
	ByCategory       []CategorySummary `json:"by_category"`
	// Placeholders counts occurrences that needed at least one substituted label.
	Placeholders int `json:"placeholders"`
}

// CountOn returns the summary for d, or a zero summary for a date without deliveries.
func (s Summary) CountOn(d domain.Date) DateSummary {
	for _, ds := range s.ByDate {
		if ds.Date == d {
			return ds
		}
	}
	return DateSummary{Date: d}
}

// Aggregator carries the placeholder labels used while grouping.
type Aggregator struct {
	labels domain.Labels
}

// New returns an Aggregator; blank labels fall back to the defaults.
func New(labels domain.Labels) Aggregator {
	return Aggregator{labels: labels.WithDefaults()}
}

// Aggregate groups occurrences with the default labels.
func Aggregate(occurrences []domain.Occurrence) Summary {
	return New(domain.Labels{}).Aggregate(occurrences)
}

// Aggregate builds all four groupings. It never fails and never mutates its input.
func (a Aggregator) Aggregate(occurrences []domain.Occurrence) Summary {
	var summary Summary

	type dateAcc struct {
		summary   DateSummary
		customers map[snowflake.ID]struct{}
	}
	type groupAcc struct {
		group DeliveryGroup
		subs  map[snowflake.ID]struct{}
	}

	dateIndex := make(map[domain.Date]*dateAcc)
	dateOrder := make([]*dateAcc, 0)
	groupIndex := make(map[string]*groupAcc)
	groupOrder := make([]*groupAcc, 0)

	for _, occ := range occurrences {
		occ, substituted := a.normalize(occ)
		if substituted {
			summary.Placeholders++
		}

		da, ok := dateIndex[occ.Date]
		if !ok {
			da = &dateAcc{summary: DateSummary{Date: occ.Date}, customers: make(map[snowflake.ID]struct{})}
			dateIndex[occ.Date] = da
			dateOrder = append(dateOrder, da)
		}
		da.summary.TotalQuantity += occ.Quantity
		da.summary.Deliveries++
		da.customers[customerKey(occ)] = struct{}{}

		addressKey := a.AddressKey(occ.Address)
		key := occ.Date.String() + "|" + strings.ToLower(addressKey)
		ga, ok := groupIndex[key]
		if !ok {
			ga = &groupAcc{
				group: DeliveryGroup{Date: occ.Date, AddressKey: addressKey, Address: occ.Address},
				subs:  make(map[snowflake.ID]struct{}),
			}
			groupIndex[key] = ga
			groupOrder = append(groupOrder, ga)
		}
		ga.group.TotalQuantity += occ.Quantity
		if _, seen := ga.subs[occ.SubscriptionID]; !seen {
			ga.subs[occ.SubscriptionID] = struct{}{}
			ga.group.SubscriptionIDs = append(ga.group.SubscriptionIDs, occ.SubscriptionID)
		}
	}

	summary.ByDate = make([]DateSummary, 0, len(dateOrder))
	for _, da := range dateOrder {
		da.summary.Customers = len(da.customers)
		summary.ByDate = append(summary.ByDate, da.summary)
	}
	sort.SliceStable(summary.ByDate, func(i, j int) bool {
		return summary.ByDate[i].Date.Before(summary.ByDate[j].Date)
	})

	summary.ByDateAndAddress = make([]DeliveryGroup, 0, len(groupOrder))
	for _, ga := range groupOrder {
		summary.ByDateAndAddress = append(summary.ByDateAndAddress, ga.group)
	}
	sort.SliceStable(summary.ByDateAndAddress, func(i, j int) bool {
		return summary.ByDateAndAddress[i].Date.Before(summary.ByDateAndAddress[j].Date)
	})

	summary.ByProduct = a.productTotals(occurrences, nil)
	summary.ByCategory = CategoryTotals(summary.ByProduct)
	return summary
}

// ProductTotals sums quantities per product name for the occurrences inside rng.
// Each call starts from an empty accumulator, so a day scope and a week scope never share state.
func (a Aggregator) ProductTotals(occurrences []domain.Occurrence, rng domain.DateRange) []ProductSummary {
	return a.productTotals(occurrences, &rng)
}

// ProductTotals is Aggregator.ProductTotals with the default labels.
func ProductTotals(occurrences []domain.Occurrence, rng domain.DateRange) []ProductSummary {
	return New(domain.Labels{}).ProductTotals(occurrences, rng)
}

func (a Aggregator) productTotals(occurrences []domain.Occurrence, rng *domain.DateRange) []ProductSummary {
	index := make(map[string]int)
	out := make([]ProductSummary, 0)
	for _, occ := range occurrences {
		if rng != nil && !rng.Contains(occ.Date) {
			continue
		}
		occ, _ = a.normalize(occ)
		pos, ok := index[occ.ProductName]
		if !ok {
			pos = len(out)
			index[occ.ProductName] = pos
			out = append(out, ProductSummary{ProductName: occ.ProductName, Category: occ.Category})
		}
		out[pos].Quantity += occ.Quantity
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Quantity > out[j].Quantity
	})
	return out
}

// CategoryTotals regroups product totals by category.
func CategoryTotals(products []ProductSummary) []CategorySummary {
	index := make(map[string]int)
	out := make([]CategorySummary, 0)
	for _, p := range products {
		pos, ok := index[p.Category]
		if !ok {
			pos = len(out)
			index[p.Category] = pos
			out = append(out, CategorySummary{Category: p.Category})
		}
		out[pos].Quantity += p.Quantity
	}

	maxQty := 0
	for _, c := range out {
		if c.Quantity > maxQty {
			maxQty = c.Quantity
		}
	}
	if maxQty > 0 {
		for i := range out {
			out[i].Percent = math.Round(float64(out[i].Quantity)/float64(maxQty)*10000) / 100
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Quantity > out[j].Quantity
	})
	return out
}

// NextDeliveries returns up to limit groups dated on or after from, soonest first.
// A non-positive limit uses DefaultPreviewLimit.
func NextDeliveries(groups []DeliveryGroup, from domain.Date, limit int) []DeliveryGroup {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	upcoming := make([]DeliveryGroup, 0, limit)
	for _, g := range groups {
		if g.Date.Before(from) {
			continue
		}
		upcoming = append(upcoming, g)
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].Date.Before(upcoming[j].Date)
	})
	if len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return upcoming
}

// AddressKey renders "street, number - neighborhood", or the not-informed label when the
// street is missing.
func (a Aggregator) AddressKey(addr domain.Address) string {
	street := strings.TrimSpace(addr.Street)
	if street == "" {
		return a.labels.AddressNotInformed
	}
	key := street
	if number := strings.TrimSpace(addr.Number); number != "" {
		key += ", " + number
	}
	if neighborhood := strings.TrimSpace(addr.Neighborhood); neighborhood != "" {
		key += " - " + neighborhood
	}
	return strings.Join(strings.Fields(key), " ")
}

func (a Aggregator) normalize(occ domain.Occurrence) (domain.Occurrence, bool) {
	substituted := false
	if strings.TrimSpace(occ.ProductName) == "" {
		occ.ProductName = a.labels.UnknownProduct
		substituted = true
	}
	if strings.TrimSpace(occ.Category) == "" {
		occ.Category = a.labels.Uncategorized
		substituted = true
	}
	if occ.CustomerID == 0 {
		substituted = true
	}
	return occ, substituted
}

// customerKey falls back to the subscription when the customer reference is missing, so
// the delivery still counts toward the distinct total.
func customerKey(occ domain.Occurrence) snowflake.ID {
	if occ.CustomerID != 0 {
		return occ.CustomerID
	}
	return occ.SubscriptionID
}
