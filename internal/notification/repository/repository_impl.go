package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recurra/internal/notification/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, n *domain.Notification) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO notifications (id, team_id, customer_id, kind, title, message, link, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.ID,
		n.TeamID,
		n.CustomerID,
		n.Kind,
		n.Title,
		n.Message,
		n.Link,
		n.Metadata,
		n.CreatedAt,
	).Error
}

func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, customerID snowflake.ID, limit int) ([]domain.Notification, error) {
	var items []domain.Notification
	err := db.WithContext(ctx).Raw(
		`SELECT id, team_id, customer_id, kind, title, message, link, metadata, read_at, created_at
		 FROM notifications WHERE customer_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		customerID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
