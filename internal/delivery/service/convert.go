package service

import (
	"github.com/smallbiznis/recurra/internal/delivery/aggregate"
	"github.com/smallbiznis/recurra/internal/delivery/domain"
	"github.com/smallbiznis/recurra/internal/delivery/projector"
)

func toDateCount(ds aggregate.DateSummary) domain.DateCount {
	return domain.DateCount{
		Date:          ds.Date,
		TotalQuantity: ds.TotalQuantity,
		Deliveries:    ds.Deliveries,
		Customers:     ds.Customers,
	}
}

func toProductTotals(in []aggregate.ProductSummary) []domain.ProductTotal {
	out := make([]domain.ProductTotal, 0, len(in))
	for _, p := range in {
		out = append(out, domain.ProductTotal{ProductName: p.ProductName, Category: p.Category, Quantity: p.Quantity})
	}
	return out
}

func toCategoryTotals(in []aggregate.CategorySummary) []domain.CategoryTotal {
	out := make([]domain.CategoryTotal, 0, len(in))
	for _, c := range in {
		out = append(out, domain.CategoryTotal{Category: c.Category, Quantity: c.Quantity, Percent: c.Percent})
	}
	return out
}

func toGroups(in []aggregate.DeliveryGroup) []domain.DeliveryGroup {
	out := make([]domain.DeliveryGroup, 0, len(in))
	for _, g := range in {
		ids := make([]string, 0, len(g.SubscriptionIDs))
		for _, id := range g.SubscriptionIDs {
			ids = append(ids, id.String())
		}
		out = append(out, domain.DeliveryGroup{
			Date:            g.Date,
			AddressKey:      g.AddressKey,
			Address:         g.Address,
			TotalQuantity:   g.TotalQuantity,
			SubscriptionIDs: ids,
		})
	}
	return out
}

func dataQuality(p projector.Projection) domain.DataQuality {
	skipped := p.Skipped
	if skipped == nil {
		skipped = []domain.SkippedItem{}
	}
	return domain.DataQuality{SkippedItems: skipped, Placeholders: p.Placeholders}
}
