package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recurra/internal/clock"
	"github.com/smallbiznis/recurra/internal/notification/domain"
	"github.com/smallbiznis/recurra/internal/notification/repository"
	"github.com/smallbiznis/recurra/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB, *clock.FakeClock) {
	t.Helper()
	db := testutil.OpenDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clk,
		Repo:  repository.Provide(),
	})
	return svc, db, clk
}

func TestNotifyWritesOutbox(t *testing.T) {
	svc, _, clk := newTestService(t)
	ctx := context.Background()

	err := svc.Notify(ctx, nil, domain.Message{
		TeamID:     10,
		CustomerID: 100,
		Kind:       domain.KindPriceChanged,
		Title:      " Your monthly price changed ",
		Message:    "New monthly price: 259.80",
		Link:       "/subscriptions/1",
		Metadata:   map[string]any{"subscription_id": "1"},
	})
	require.NoError(t, err)

	clk.Advance(time.Minute)
	require.NoError(t, svc.Notify(ctx, nil, domain.Message{CustomerID: 100, Title: "Second", Message: "later"}))

	items, err := svc.ListForCustomer(ctx, 100, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Second", items[0].Title)
	assert.Equal(t, "Your monthly price changed", items[1].Title)
	assert.Equal(t, domain.KindPriceChanged, items[1].Kind)
	assert.Equal(t, "1", items[1].Metadata["subscription_id"])
}

func TestNotifyUsesCallerTransaction(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	_ = db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, svc.Notify(ctx, tx, domain.Message{CustomerID: 100, Title: "t", Message: "m"}))
		return assert.AnError
	})

	items, err := svc.ListForCustomer(ctx, 100, 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestNotifyValidatesPayload(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Notify(ctx, nil, domain.Message{Title: "t", Message: "m"}), domain.ErrInvalidCustomer)
	assert.ErrorIs(t, svc.Notify(ctx, nil, domain.Message{CustomerID: 1, Message: "m"}), domain.ErrInvalidTitle)
	assert.ErrorIs(t, svc.Notify(ctx, nil, domain.Message{CustomerID: 1, Title: "t"}), domain.ErrInvalidMessage)

	_, err := svc.ListForCustomer(ctx, 0, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidCustomer)
}
