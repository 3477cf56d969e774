package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recurra/internal/clock"
	deliverydomain "github.com/smallbiznis/recurra/internal/delivery/domain"
	notificationdomain "github.com/smallbiznis/recurra/internal/notification/domain"
	"github.com/smallbiznis/recurra/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/recurra/internal/observability/metrics"
	"github.com/smallbiznis/recurra/internal/pricing/domain"
	"github.com/smallbiznis/recurra/internal/pricing/reconciler"
	productdomain "github.com/smallbiznis/recurra/internal/product/domain"
	subscriptiondomain "github.com/smallbiznis/recurra/internal/subscription/domain"
	"github.com/smallbiznis/recurra/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	GenID            *snowflake.Node
	Calendar         *clock.BusinessCalendar
	Repo             domain.Repository
	SubscriptionRepo subscriptiondomain.Repository
	ProductRepo      productdomain.Repository
	Notifier         notificationdomain.Notifier
	Metrics          *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	genID            *snowflake.Node
	calendar         *clock.BusinessCalendar
	repo             domain.Repository
	subscriptionRepo subscriptiondomain.Repository
	productRepo      productdomain.Repository
	notifier         notificationdomain.Notifier
	metrics          *obsmetrics.Metrics
	batchSize        int
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("pricing.service"),
		genID:            p.GenID,
		calendar:         p.Calendar,
		repo:             p.Repo,
		subscriptionRepo: p.SubscriptionRepo,
		productRepo:      p.ProductRepo,
		notifier:         p.Notifier,
		metrics:          p.Metrics,
		batchSize:        domain.DefaultSweepBatchSize,
	}
}

const (
	reasonItemsChanged = "items_changed"
	reasonPriceUpdate  = "price_update"
)

func (s *Service) ReconcileSubscription(ctx context.Context, subscriptionID string) (*domain.ReconcileResponse, error) {
	id, err := parseID(subscriptionID)
	if err != nil {
		return nil, domain.ErrInvalidSubscription
	}

	var resp domain.ReconcileResponse
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub, err := s.subscriptionRepo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if sub == nil {
			return domain.ErrSubscriptionNotFound
		}
		resp, err = s.reconcileLocked(ctx, tx, sub, reasonItemsChanged)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// reconcileLocked recomputes the monthly price of a subscription already locked by tx,
// writes it back when it moved and queues a customer notification for active ones.
func (s *Service) reconcileLocked(ctx context.Context, tx *gorm.DB, sub *subscriptiondomain.Subscription, reason string) (domain.ReconcileResponse, error) {
	rows, err := s.subscriptionRepo.ItemsBySubscription(ctx, tx, sub.ID)
	if err != nil {
		return domain.ReconcileResponse{}, err
	}
	items := make([]deliverydomain.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.ToDelivery())
	}

	result := reconciler.RecalculateMonthlyPrice(items)
	resp := domain.ReconcileResponse{
		SubscriptionID:       sub.ID.String(),
		PreviousMonthlyPrice: sub.MonthlyPrice,
		MonthlyPrice:         result.MonthlyPrice,
		Changed:              !result.MonthlyPrice.Equal(sub.MonthlyPrice),
		Contributions:        result.Contributions,
		SkippedItems:         len(result.Skipped),
	}

	log := logger.WithContext(ctx, s.log).With(
		zap.String("subscription_id", sub.ID.String()),
		zap.String("reason", reason),
	)
	for _, skipped := range result.Skipped {
		s.metrics.RecordSkippedItem(ctx, skipped.Reason)
		log.Warn("item excluded from monthly price",
			zap.String("item_id", skipped.ItemID.String()),
			zap.String("skip_reason", skipped.Reason),
		)
	}

	if !resp.Changed {
		s.metrics.RecordRecalculation(ctx, "unchanged")
		return resp, nil
	}

	if err := s.subscriptionRepo.UpdateMonthlyPrice(ctx, tx, sub.ID, result.MonthlyPrice, s.calendar.Now().UTC()); err != nil {
		return domain.ReconcileResponse{}, err
	}
	s.metrics.RecordRecalculation(ctx, "changed")
	log.Info("monthly price updated",
		zap.String("previous_monthly_price", sub.MonthlyPrice.StringFixed(reconciler.CurrencyPlaces)),
		zap.String("monthly_price", result.MonthlyPrice.StringFixed(reconciler.CurrencyPlaces)),
	)

	if !sub.IsActive() {
		return resp, nil
	}
	if err := s.notifier.Notify(ctx, tx, priceChangedMessage(sub, result.MonthlyPrice, reason)); err != nil {
		return domain.ReconcileResponse{}, fmt.Errorf("notify customer: %w", err)
	}
	resp.Notified = true
	return resp, nil
}

func priceChangedMessage(sub *subscriptiondomain.Subscription, price decimal.Decimal, reason string) notificationdomain.Message {
	previous := sub.MonthlyPrice.StringFixed(reconciler.CurrencyPlaces)
	current := price.StringFixed(reconciler.CurrencyPlaces)
	return notificationdomain.Message{
		TeamID:     sub.TeamID,
		CustomerID: sub.CustomerID,
		Kind:       notificationdomain.KindPriceChanged,
		Title:      "Your subscription price changed",
		Message:    fmt.Sprintf("Your monthly price changed from %s to %s.", previous, current),
		Link:       "/subscriptions/" + sub.ID.String(),
		Metadata: map[string]any{
			"subscription_id":        sub.ID.String(),
			"previous_monthly_price": previous,
			"monthly_price":          current,
			"reason":                 reason,
		},
	}
}

func (s *Service) SchedulePriceUpdate(ctx context.Context, req domain.SchedulePriceUpdateRequest) (*domain.PriceUpdateResponse, error) {
	teamID, err := parseID(req.TeamID)
	if err != nil {
		return nil, domain.ErrInvalidTeam
	}
	productID, err := parseID(req.ProductID)
	if err != nil {
		return nil, domain.ErrInvalidProduct
	}
	price, err := decimal.NewFromString(strings.TrimSpace(req.NewUnitPrice))
	if err != nil || price.IsNegative() {
		return nil, domain.ErrInvalidUnitPrice
	}
	effective, err := deliverydomain.ParseDate(strings.TrimSpace(req.EffectiveDate))
	if err != nil {
		return nil, domain.ErrInvalidEffectiveDate
	}
	if effective.Before(s.calendar.Today()) {
		return nil, domain.ErrEffectiveDateInPast
	}

	product, err := s.productRepo.FindByID(ctx, s.db, teamID, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrProductNotFound
	}

	now := s.calendar.Now().UTC()
	update := &domain.PriceUpdate{
		ID:            s.genID.Generate(),
		TeamID:        teamID,
		ProductID:     productID,
		NewUnitPrice:  price,
		EffectiveDate: effective.In(time.UTC),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.Insert(ctx, s.db, update); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicatePriceUpdate
		}
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("price update scheduled",
		zap.String("price_update_id", update.ID.String()),
		zap.String("product_id", productID.String()),
		zap.String("effective_date", effective.String()),
	)

	return &domain.PriceUpdateResponse{
		ID:            update.ID.String(),
		TeamID:        teamID.String(),
		ProductID:     productID.String(),
		NewUnitPrice:  price,
		EffectiveDate: effective.String(),
		CreatedAt:     now,
	}, nil
}

// ApplyDuePriceUpdates applies every pending record whose effective date has arrived in
// the business time zone. Each record commits in its own transaction and is marked
// applied in that same transaction, so re-running the sweep never applies it twice.
func (s *Service) ApplyDuePriceUpdates(ctx context.Context) (domain.ApplyResult, error) {
	asOf := s.calendar.Today().In(time.UTC)

	ids, err := s.repo.ListDueIDs(ctx, s.db, asOf, s.batchSize)
	if err != nil {
		return domain.ApplyResult{}, err
	}

	result := domain.ApplyResult{Due: len(ids)}
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		applied, repriced, err := s.applyOne(ctx, id)
		if err != nil {
			logger.WithContext(ctx, s.log).Error("apply price update failed",
				zap.String("price_update_id", id.String()),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("price update %s: %w", id.String(), err))
			continue
		}
		if !applied {
			result.AlreadyApplied++
			continue
		}
		result.Applied++
		result.SubscriptionsRepriced += repriced
	}

	return result, errors.Join(errs...)
}

func (s *Service) applyOne(ctx context.Context, id snowflake.ID) (bool, int, error) {
	applied := false
	repriced := 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update, err := s.repo.FindByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if update == nil || update.IsApplied() {
			return nil
		}

		now := s.calendar.Now().UTC()
		if _, err := s.subscriptionRepo.UpdateItemUnitPrice(ctx, tx, update.TeamID, update.ProductID, update.NewUnitPrice, now); err != nil {
			return err
		}
		if err := s.productRepo.UpdateUnitPrice(ctx, tx, &productdomain.Product{
			ID:        update.ProductID,
			TeamID:    update.TeamID,
			UnitPrice: update.NewUnitPrice,
			UpdatedAt: now,
		}); err != nil {
			return err
		}

		subscriptionIDs, err := s.subscriptionRepo.SubscriptionIDsByProduct(ctx, tx, update.TeamID, update.ProductID)
		if err != nil {
			return err
		}
		for _, subID := range subscriptionIDs {
			sub, err := s.subscriptionRepo.FindByIDForUpdate(ctx, tx, subID)
			if err != nil {
				return err
			}
			if sub == nil {
				continue
			}
			resp, err := s.reconcileLocked(ctx, tx, sub, reasonPriceUpdate)
			if err != nil {
				return err
			}
			if resp.Changed {
				repriced++
			}
		}

		if err := s.repo.MarkApplied(ctx, tx, update.ID, now, len(subscriptionIDs)); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, 0, err
	}
	if applied {
		s.metrics.RecordPriceUpdateApplied(ctx)
		logger.WithContext(ctx, s.log).Info("price update applied",
			zap.String("price_update_id", id.String()),
			zap.Int("subscriptions_repriced", repriced),
		)
	}
	return applied, repriced, nil
}

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, errors.New("invalid_id")
	}
	return id, nil
}
