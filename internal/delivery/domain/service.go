package domain

import (
	"context"
	"errors"
)

// Service answers the read paths that project schedules: the team dashboard, the
// production sheet and a customer's upcoming deliveries.
type Service interface {
	TeamDashboard(ctx context.Context, req DashboardRequest) (*DashboardResponse, error)
	ProductionSheet(ctx context.Context, req ProductionRequest) (*ProductionResponse, error)
	CustomerUpcoming(ctx context.Context, req UpcomingRequest) (*UpcomingResponse, error)
}

type DashboardRequest struct {
	TeamID string
	// Date is YYYY-MM-DD; empty means today in the business time zone.
	Date string
}

type ProductionRequest struct {
	TeamID string
	Start  string
	End    string
}

type UpcomingRequest struct {
	CustomerID string
	// Limit caps the number of delivery groups; zero uses the configured preview limit.
	Limit int
}

var (
	ErrInvalidTeam     = errors.New("invalid_team")
	ErrInvalidCustomer = errors.New("invalid_customer")
	ErrInvalidLimit    = errors.New("invalid_limit")
)
