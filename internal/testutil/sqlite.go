// Package testutil opens throwaway SQLite databases shaped like the production schema.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

var dbSeq atomic.Int64

const schema = `
CREATE TABLE products (
	id INTEGER PRIMARY KEY,
	team_id INTEGER NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	unit_price TEXT NOT NULL DEFAULT '0',
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE subscriptions (
	id INTEGER PRIMARY KEY,
	team_id INTEGER NOT NULL,
	customer_id INTEGER NOT NULL,
	delivery_area_id INTEGER NOT NULL DEFAULT 0,
	street TEXT NOT NULL DEFAULT '',
	number TEXT NOT NULL DEFAULT '',
	neighborhood TEXT NOT NULL DEFAULT '',
	city TEXT NOT NULL DEFAULT '',
	state TEXT NOT NULL DEFAULT '',
	zip TEXT NOT NULL DEFAULT '',
	complement TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT 'active',
	start_date DATETIME,
	monthly_price TEXT NOT NULL DEFAULT '0',
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE subscription_items (
	id INTEGER PRIMARY KEY,
	subscription_id INTEGER NOT NULL,
	product_id INTEGER NOT NULL,
	frequency TEXT NOT NULL,
	delivery_days TEXT,
	biweekly_delivery_day TEXT,
	monthly_delivery_day INTEGER,
	quantity INTEGER NOT NULL DEFAULT 1,
	unit_price TEXT NOT NULL DEFAULT '0',
	created_at DATETIME,
	updated_at DATETIME
);
CREATE TABLE price_updates (
	id INTEGER PRIMARY KEY,
	team_id INTEGER NOT NULL,
	product_id INTEGER NOT NULL,
	new_unit_price TEXT NOT NULL,
	effective_date DATETIME NOT NULL,
	applied_at DATETIME,
	affected_subscriptions INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME,
	updated_at DATETIME,
	UNIQUE (team_id, product_id, effective_date)
);
CREATE TABLE notifications (
	id INTEGER PRIMARY KEY,
	team_id INTEGER NOT NULL,
	customer_id INTEGER NOT NULL,
	kind TEXT NOT NULL,
	title TEXT NOT NULL,
	message TEXT NOT NULL,
	link TEXT NOT NULL DEFAULT '',
	metadata TEXT,
	read_at DATETIME,
	created_at DATETIME
);
`

// OpenDB returns an isolated in-memory database with every table created.
// Row-lock clauses are stripped because SQLite has no FOR UPDATE.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:recurra_test_%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}

	db.Callback().Query().Before("gorm:query").Register("sqlite_skip_locked", stripRowLocks)
	db.Callback().Row().Before("gorm:row").Register("sqlite_skip_locked_row", stripRowLocks)

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("failed to create schema: %v", err)
		}
	}
	return db
}

func stripRowLocks(d *gorm.DB) {
	sql := d.Statement.SQL.String()
	if !strings.Contains(sql, "FOR UPDATE") {
		return
	}
	sql = strings.ReplaceAll(sql, "FOR UPDATE SKIP LOCKED", "")
	sql = strings.ReplaceAll(sql, "FOR UPDATE", "")
	d.Statement.SQL.Reset()
	d.Statement.SQL.WriteString(sql)
}
