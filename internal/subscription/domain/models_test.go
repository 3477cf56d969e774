package domain

import (
	"testing"

	delivery "github.com/smallbiznis/recurra/internal/delivery/domain"
	"github.com/stretchr/testify/assert"
)

func strPtr(v string) *string { return &v }
func intPtr(v int) *int       { return &v }

func TestSubscriptionItemSchedule(t *testing.T) {
	tests := []struct {
		name string
		item SubscriptionItem
		want delivery.Schedule
	}{
		{
			name: "weekly with aliases",
			item: SubscriptionItem{Frequency: "weekly", DeliveryDays: []string{"Mon", " friday", ""}},
			want: delivery.Weekly{Days: []delivery.Weekday{delivery.Monday, delivery.Friday}},
		},
		{
			name: "weekly empty",
			item: SubscriptionItem{Frequency: "weekly"},
			want: delivery.Weekly{Days: []delivery.Weekday{}},
		},
		{
			name: "weekly bad day",
			item: SubscriptionItem{Frequency: "weekly", DeliveryDays: []string{"funday"}},
			want: delivery.Malformed{Err: delivery.ErrInvalidWeekday},
		},
		{
			name: "biweekly",
			item: SubscriptionItem{Frequency: "biweekly", BiweeklyDeliveryDay: strPtr("Wednesday")},
			want: delivery.BiWeekly{Day: delivery.Wednesday},
		},
		{
			name: "biweekly missing day",
			item: SubscriptionItem{Frequency: "bi-weekly"},
			want: delivery.Malformed{Err: delivery.ErrMissingSchedule},
		},
		{
			name: "monthly",
			item: SubscriptionItem{Frequency: "monthly", MonthlyDeliveryDay: intPtr(31)},
			want: delivery.Monthly{Day: 31},
		},
		{
			name: "monthly missing day",
			item: SubscriptionItem{Frequency: "monthly"},
			want: delivery.Malformed{Err: delivery.ErrMissingSchedule},
		},
		{
			name: "unknown frequency",
			item: SubscriptionItem{Frequency: "daily"},
			want: delivery.Malformed{Err: delivery.ErrUnknownFrequency},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.item.Schedule())
		})
	}
}

func TestMalformedItemIsSkippedWithReason(t *testing.T) {
	item := SubscriptionItem{Frequency: "daily", Quantity: 1}.ToDelivery()
	assert.ErrorIs(t, item.Validate(), delivery.ErrUnknownFrequency)
}

func TestSubscriptionStatusIsNormalized(t *testing.T) {
	sub := Subscription{Status: " ACTIVE "}
	assert.True(t, sub.IsActive())
	assert.Equal(t, delivery.SubscriptionStatusActive, sub.ToDelivery().Status)
	assert.False(t, sub.ToDelivery().HasStartDate())
}
