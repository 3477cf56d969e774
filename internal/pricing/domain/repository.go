package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, update *PriceUpdate) error
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*PriceUpdate, error)
	ListDueIDs(ctx context.Context, db *gorm.DB, asOf time.Time, limit int) ([]snowflake.ID, error)
	MarkApplied(ctx context.Context, db *gorm.DB, id snowflake.ID, appliedAt time.Time, affected int) error
}
