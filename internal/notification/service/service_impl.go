package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recurra/internal/clock"
	"github.com/smallbiznis/recurra/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/recurra/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	repo    domain.Repository
	metrics *obsmetrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("notification.service"),
		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
	}
}

func (s *Service) Notify(ctx context.Context, tx *gorm.DB, msg domain.Message) error {
	if msg.CustomerID == 0 {
		return domain.ErrInvalidCustomer
	}
	title := strings.TrimSpace(msg.Title)
	if title == "" {
		return domain.ErrInvalidTitle
	}
	body := strings.TrimSpace(msg.Message)
	if body == "" {
		return domain.ErrInvalidMessage
	}
	if tx == nil {
		tx = s.db
	}

	metadata := datatypes.JSONMap{}
	for k, v := range msg.Metadata {
		metadata[k] = v
	}

	n := &domain.Notification{
		ID:         s.genID.Generate(),
		TeamID:     msg.TeamID,
		CustomerID: msg.CustomerID,
		Kind:       strings.TrimSpace(msg.Kind),
		Title:      title,
		Message:    body,
		Link:       strings.TrimSpace(msg.Link),
		Metadata:   metadata,
		CreatedAt:  s.clock.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, tx, n); err != nil {
		return err
	}

	s.metrics.RecordNotification(ctx, n.Kind)
	s.log.Debug("notification queued",
		zap.String("notification_id", n.ID.String()),
		zap.String("customer_id", n.CustomerID.String()),
		zap.String("kind", n.Kind),
	)
	return nil
}

func (s *Service) ListForCustomer(ctx context.Context, customerID snowflake.ID, limit int) ([]domain.Notification, error) {
	if customerID == 0 {
		return nil, domain.ErrInvalidCustomer
	}
	if limit <= 0 {
		limit = domain.DefaultListLimit
	}
	if limit > domain.MaxListLimit {
		limit = domain.MaxListLimit
	}
	return s.repo.ListByCustomer(ctx, s.db, customerID, limit)
}
