// Package projector expands subscription items across a date range into delivery occurrences.
package projector

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recurra/internal/delivery/calendar"
	"github.com/smallbiznis/recurra/internal/delivery/domain"
)

// Request is one projection over an in-memory snapshot.
type Request struct {
	Subscriptions []domain.Subscription
	Items         []domain.Item
	Products      []domain.Product
	Range         domain.DateRange
	Labels        domain.Labels
}

// Projection is the outcome of Project. Occurrences are ordered by date, then by the
// input order of subscriptions and items.
type Projection struct {
	Range       domain.DateRange
	Occurrences []domain.Occurrence
	// Skipped lists malformed items of active subscriptions, once each.
	Skipped []domain.SkippedItem
	// Placeholders counts items whose product reference could not be resolved.
	Placeholders int
}

type plannedItem struct {
	item     domain.Item
	product  domain.Product
	category string
}

type plannedSubscription struct {
	sub   domain.Subscription
	items []plannedItem
}

// Project evaluates every item of every active subscription on every date of the range.
// Only a structurally invalid range is an error; bad records degrade, they never abort.
func Project(req Request) (Projection, error) {
	if err := req.Range.Validate(); err != nil {
		return Projection{}, err
	}
	labels := req.Labels.WithDefaults()

	products := make(map[snowflake.ID]domain.Product, len(req.Products))
	for _, p := range req.Products {
		products[p.ID] = p
	}

	itemsBySubscription := make(map[snowflake.ID][]domain.Item, len(req.Subscriptions))
	for _, item := range req.Items {
		itemsBySubscription[item.SubscriptionID] = append(itemsBySubscription[item.SubscriptionID], item)
	}

	out := Projection{Range: req.Range}
	plan := make([]plannedSubscription, 0, len(req.Subscriptions))
	for _, sub := range req.Subscriptions {
		if sub.Status != domain.SubscriptionStatusActive || !sub.HasStartDate() {
			continue
		}

		planned := plannedSubscription{sub: sub}
		seen := make(map[snowflake.ID]struct{})
		for _, item := range itemsBySubscription[sub.ID] {
			if _, dup := seen[item.ID]; dup {
				continue
			}
			seen[item.ID] = struct{}{}

			if err := item.Validate(); err != nil {
				out.Skipped = append(out.Skipped, domain.SkippedItem{
					ItemID:         item.ID,
					SubscriptionID: sub.ID,
					Reason:         err.Error(),
				})
				continue
			}

			product, ok := products[item.ProductID]
			if !ok || strings.TrimSpace(product.Name) == "" {
				out.Placeholders++
				product = domain.Product{ID: item.ProductID, Name: labels.UnknownProduct, Category: product.Category}
			}
			category := strings.TrimSpace(product.Category)
			if category == "" {
				category = labels.Uncategorized
			}
			planned.items = append(planned.items, plannedItem{item: item, product: product, category: category})
		}
		if len(planned.items) > 0 {
			plan = append(plan, planned)
		}
	}

	for _, day := range req.Range.Days() {
		for _, ps := range plan {
			for _, pi := range ps.items {
				if !calendar.IsDeliveryDue(pi.item.Schedule, ps.sub.StartDate, day) {
					continue
				}
				out.Occurrences = append(out.Occurrences, domain.Occurrence{
					Date:           day,
					SubscriptionID: ps.sub.ID,
					CustomerID:     ps.sub.CustomerID,
					ItemID:         pi.item.ID,
					ProductID:      pi.item.ProductID,
					ProductName:    pi.product.Name,
					Category:       pi.category,
					Quantity:       pi.item.Quantity,
					Address:        ps.sub.Address,
				})
			}
		}
	}

	return out, nil
}
