package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recurra/internal/clock"
	"github.com/smallbiznis/recurra/internal/config"
	"github.com/smallbiznis/recurra/internal/delivery/aggregate"
	"github.com/smallbiznis/recurra/internal/delivery/domain"
	"github.com/smallbiznis/recurra/internal/delivery/projector"
	"github.com/smallbiznis/recurra/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/recurra/internal/observability/metrics"
	productdomain "github.com/smallbiznis/recurra/internal/product/domain"
	subscriptiondomain "github.com/smallbiznis/recurra/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB               *gorm.DB
	Log              *zap.Logger
	Calendar         *clock.BusinessCalendar
	EngineConfig     *config.EngineConfigHolder `optional:"true"`
	SubscriptionRepo subscriptiondomain.Repository
	ProductRepo      productdomain.Repository
	Metrics          *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db               *gorm.DB
	log              *zap.Logger
	calendar         *clock.BusinessCalendar
	engineConfig     *config.EngineConfigHolder
	subscriptionRepo subscriptiondomain.Repository
	productRepo      productdomain.Repository
	metrics          *obsmetrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:               p.DB,
		log:              p.Log.Named("delivery.service"),
		calendar:         p.Calendar,
		engineConfig:     p.EngineConfig,
		subscriptionRepo: p.SubscriptionRepo,
		productRepo:      p.ProductRepo,
		metrics:          p.Metrics,
	}
}

var activeStatuses = []string{string(domain.SubscriptionStatusActive)}

func (s *Service) TeamDashboard(ctx context.Context, req domain.DashboardRequest) (*domain.DashboardResponse, error) {
	teamID, err := parseID(req.TeamID)
	if err != nil {
		return nil, domain.ErrInvalidTeam
	}
	cfg := s.engineConfig.Get()

	day := s.calendar.Today()
	if raw := strings.TrimSpace(req.Date); raw != "" {
		day, err = domain.ParseDate(raw)
		if err != nil {
			return nil, err
		}
	}

	week := domain.WeekOf(day)
	preview := domain.DateRange{Start: day, End: day.AddDays(cfg.UpcomingDays - 1)}
	window := domain.DateRange{Start: week.Start, End: week.End}
	if preview.End.After(window.End) {
		window.End = preview.End
	}

	labels := labelsFrom(cfg)
	projection, err := s.project(ctx, obsmetrics.ViewDashboard, subscriptiondomain.SnapshotFilter{TeamID: teamID, Statuses: activeStatuses}, window, labels)
	if err != nil {
		return nil, err
	}

	agg := aggregate.New(labels)
	summary := agg.Aggregate(projection.Occurrences)
	dayTotals := agg.ProductTotals(projection.Occurrences, domain.SingleDay(day))
	weekTotals := agg.ProductTotals(projection.Occurrences, week)

	return &domain.DashboardResponse{
		TeamID:      teamID.String(),
		Date:        day,
		SelectedDay: toDateCount(summary.CountOn(day)),
		NextDay:     toDateCount(summary.CountOn(day.AddDays(1))),
		Day: domain.Totals{
			Range:      domain.SingleDay(day),
			Products:   toProductTotals(dayTotals),
			Categories: toCategoryTotals(aggregate.CategoryTotals(dayTotals)),
		},
		Week: domain.Totals{
			Range:      week,
			Products:   toProductTotals(weekTotals),
			Categories: toCategoryTotals(aggregate.CategoryTotals(weekTotals)),
		},
		NextDeliveries: toGroups(aggregate.NextDeliveries(summary.ByDateAndAddress, day, cfg.PreviewLimit)),
		DataQuality:    dataQuality(projection),
	}, nil
}

func (s *Service) ProductionSheet(ctx context.Context, req domain.ProductionRequest) (*domain.ProductionResponse, error) {
	teamID, err := parseID(req.TeamID)
	if err != nil {
		return nil, domain.ErrInvalidTeam
	}
	cfg := s.engineConfig.Get()

	rng, err := s.parseRange(req.Start, req.End, cfg)
	if err != nil {
		return nil, err
	}

	labels := labelsFrom(cfg)
	projection, err := s.project(ctx, obsmetrics.ViewProduction, subscriptiondomain.SnapshotFilter{TeamID: teamID, Statuses: activeStatuses}, rng, labels)
	if err != nil {
		return nil, err
	}

	agg := aggregate.New(labels)
	summary := agg.Aggregate(projection.Occurrences)

	byDate := make(map[domain.Date][]domain.Occurrence)
	for _, occ := range projection.Occurrences {
		byDate[occ.Date] = append(byDate[occ.Date], occ)
	}
	days := make([]domain.ProductionDay, 0, len(summary.ByDate))
	for _, ds := range summary.ByDate {
		days = append(days, domain.ProductionDay{
			Date:          ds.Date,
			TotalQuantity: ds.TotalQuantity,
			Deliveries:    ds.Deliveries,
			Products:      toProductTotals(agg.ProductTotals(byDate[ds.Date], domain.SingleDay(ds.Date))),
		})
	}

	return &domain.ProductionResponse{
		TeamID: teamID.String(),
		Range:  rng,
		Days:   days,
		Totals: domain.Totals{
			Range:      rng,
			Products:   toProductTotals(summary.ByProduct),
			Categories: toCategoryTotals(summary.ByCategory),
		},
		DataQuality: dataQuality(projection),
	}, nil
}

func (s *Service) CustomerUpcoming(ctx context.Context, req domain.UpcomingRequest) (*domain.UpcomingResponse, error) {
	customerID, err := parseID(req.CustomerID)
	if err != nil {
		return nil, domain.ErrInvalidCustomer
	}
	if req.Limit < 0 {
		return nil, domain.ErrInvalidLimit
	}
	cfg := s.engineConfig.Get()
	limit := req.Limit
	if limit == 0 {
		limit = cfg.PreviewLimit
	}

	today := s.calendar.Today()
	rng := domain.DateRange{Start: today, End: today.AddDays(cfg.UpcomingDays - 1)}

	labels := labelsFrom(cfg)
	projection, err := s.project(ctx, obsmetrics.ViewUpcoming, subscriptiondomain.SnapshotFilter{CustomerID: customerID, Statuses: activeStatuses}, rng, labels)
	if err != nil {
		return nil, err
	}

	summary := aggregate.New(labels).Aggregate(projection.Occurrences)
	return &domain.UpcomingResponse{
		CustomerID:  customerID.String(),
		Range:       rng,
		Deliveries:  toGroups(aggregate.NextDeliveries(summary.ByDateAndAddress, today, limit)),
		DataQuality: dataQuality(projection),
	}, nil
}

// project reads one consistent snapshot and expands it over rng. Degraded records are
// logged and counted here; the projector itself stays silent.
func (s *Service) project(ctx context.Context, view string, filter subscriptiondomain.SnapshotFilter, rng domain.DateRange, labels domain.Labels) (projector.Projection, error) {
	if err := rng.Validate(); err != nil {
		return projector.Projection{}, err
	}

	snapshot, err := s.subscriptionRepo.LoadSnapshot(ctx, s.db, filter)
	if err != nil {
		return projector.Projection{}, err
	}
	products, err := s.productRepo.FindByIDs(ctx, s.db, snapshot.ProductIDs())
	if err != nil {
		return projector.Projection{}, err
	}

	subs, items := snapshot.ToDelivery()
	projection, err := projector.Project(projector.Request{
		Subscriptions: subs,
		Items:         items,
		Products:      productdomain.ToDeliveryProducts(products),
		Range:         rng,
		Labels:        labels,
	})
	if err != nil {
		return projector.Projection{}, err
	}

	log := logger.WithContext(ctx, s.log).With(zap.String("view", view))
	for _, skipped := range projection.Skipped {
		s.metrics.RecordSkippedItem(ctx, skipped.Reason)
		log.Warn("subscription item skipped",
			zap.String("item_id", skipped.ItemID.String()),
			zap.String("subscription_id", skipped.SubscriptionID.String()),
			zap.String("skip_reason", skipped.Reason),
		)
	}
	if projection.Placeholders > 0 {
		log.Warn("product references replaced by placeholders", zap.Int("placeholders", projection.Placeholders))
	}
	s.metrics.RecordProjection(ctx, view, len(rng.Days()), len(projection.Occurrences), projection.Placeholders)

	return projection, nil
}

func (s *Service) parseRange(rawStart, rawEnd string, cfg config.EngineConfig) (domain.DateRange, error) {
	start, err := domain.ParseDate(strings.TrimSpace(rawStart))
	if err != nil {
		return domain.DateRange{}, err
	}
	end := start
	if strings.TrimSpace(rawEnd) != "" {
		end, err = domain.ParseDate(strings.TrimSpace(rawEnd))
		if err != nil {
			return domain.DateRange{}, err
		}
	}
	rng := domain.DateRange{Start: start, End: end}
	if err := rng.Validate(); err != nil {
		return domain.DateRange{}, err
	}
	if cfg.MaxRangeDays > 0 && end.DaysSince(start)+1 > cfg.MaxRangeDays {
		return domain.DateRange{}, domain.ErrDateRangeTooLong
	}
	return rng, nil
}

func labelsFrom(cfg config.EngineConfig) domain.Labels {
	return domain.Labels{
		UnknownProduct:     cfg.Labels.UnknownProduct,
		Uncategorized:      cfg.Labels.Uncategorized,
		AddressNotInformed: cfg.Labels.AddressNotInformed,
	}.WithDefaults()
}

var errInvalidID = errors.New("invalid_id")

func parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}
