package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/golang-sql/civil"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/recurra/internal/config"
	deliverydomain "github.com/smallbiznis/recurra/internal/delivery/domain"
	notificationdomain "github.com/smallbiznis/recurra/internal/notification/domain"
	pricingdomain "github.com/smallbiznis/recurra/internal/pricing/domain"
	"github.com/smallbiznis/recurra/internal/providers/pdf"
	"github.com/smallbiznis/recurra/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeDeliveryService struct {
	dashboardReq  deliverydomain.DashboardRequest
	productionReq deliverydomain.ProductionRequest
	upcomingReq   deliverydomain.UpcomingRequest
	upcomingCalls int
	err           error
}

func (f *fakeDeliveryService) TeamDashboard(_ context.Context, req deliverydomain.DashboardRequest) (*deliverydomain.DashboardResponse, error) {
	f.dashboardReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &deliverydomain.DashboardResponse{TeamID: req.TeamID, Date: civil.Date{Year: 2024, Month: 3, Day: 4}}, nil
}

func (f *fakeDeliveryService) ProductionSheet(_ context.Context, req deliverydomain.ProductionRequest) (*deliverydomain.ProductionResponse, error) {
	f.productionReq = req
	if f.err != nil {
		return nil, f.err
	}
	day := civil.Date{Year: 2024, Month: 3, Day: 4}
	return &deliverydomain.ProductionResponse{
		TeamID: req.TeamID,
		Range:  deliverydomain.DateRange{Start: day, End: day},
		Days: []deliverydomain.ProductionDay{{
			Date:          day,
			TotalQuantity: 3,
			Deliveries:    1,
			Products:      []deliverydomain.ProductTotal{{ProductName: "Sourdough", Category: "Bakery", Quantity: 3}},
		}},
	}, nil
}

func (f *fakeDeliveryService) CustomerUpcoming(_ context.Context, req deliverydomain.UpcomingRequest) (*deliverydomain.UpcomingResponse, error) {
	f.upcomingCalls++
	f.upcomingReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &deliverydomain.UpcomingResponse{CustomerID: req.CustomerID}, nil
}

type fakePricingService struct {
	scheduleReq pricingdomain.SchedulePriceUpdateRequest
	err         error
}

func (f *fakePricingService) ReconcileSubscription(_ context.Context, id string) (*pricingdomain.ReconcileResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &pricingdomain.ReconcileResponse{SubscriptionID: id, MonthlyPrice: decimal.RequireFromString("259.80"), Changed: true}, nil
}

func (f *fakePricingService) SchedulePriceUpdate(_ context.Context, req pricingdomain.SchedulePriceUpdateRequest) (*pricingdomain.PriceUpdateResponse, error) {
	f.scheduleReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &pricingdomain.PriceUpdateResponse{ID: "1", TeamID: req.TeamID, ProductID: req.ProductID, EffectiveDate: req.EffectiveDate}, nil
}

func (f *fakePricingService) ApplyDuePriceUpdates(context.Context) (pricingdomain.ApplyResult, error) {
	return pricingdomain.ApplyResult{}, nil
}

type fakeNotificationService struct {
	customerID snowflake.ID
	limit      int
}

func (f *fakeNotificationService) Notify(context.Context, *gorm.DB, notificationdomain.Message) error {
	return nil
}

func (f *fakeNotificationService) ListForCustomer(_ context.Context, customerID snowflake.ID, limit int) ([]notificationdomain.Notification, error) {
	f.customerID = customerID
	f.limit = limit
	return []notificationdomain.Notification{{ID: 1, CustomerID: customerID, Title: "Price updated"}}, nil
}

type testServer struct {
	engine        *gin.Engine
	delivery      *fakeDeliveryService
	pricing       *fakePricingService
	notifications *fakeNotificationService
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(ErrorHandlingMiddleware())

	ts := testServer{
		engine:        r,
		delivery:      &fakeDeliveryService{},
		pricing:       &fakePricingService{},
		notifications: &fakeNotificationService{},
	}
	NewServer(ServerParams{
		Gin:               r,
		Cfg:               config.Config{Environment: "test"},
		DeliverySvc:       ts.delivery,
		PricingSvc:        ts.pricing,
		NotificationSvc:   ts.notifications,
		PDFProvider:       pdf.New(),
		ProjectionLimiter: ratelimit.NewProjectionLimiter(nil, config.Config{ProjectionRatePerSecond: 1, ProjectionBurst: 1}),
	})
	return ts
}

func (ts testServer) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestGetTeamDashboard(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/v1/teams/10/dashboard?date=2024-03-04", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10", ts.delivery.dashboardReq.TeamID)
	assert.Equal(t, "2024-03-04", ts.delivery.dashboardReq.Date)
	assert.Contains(t, rec.Body.String(), `"date":"2024-03-04"`)
}

func TestGetTeamDashboardInvalidDate(t *testing.T) {
	ts := newTestServer(t)
	ts.delivery.err = deliverydomain.ErrInvalidDate

	rec := ts.do(t, http.MethodGet, "/v1/teams/10/dashboard?date=04/03/2024", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	payload := decodeError(t, rec)
	assert.Equal(t, "validation_error", payload.Type)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "date", payload.Errors[0].Field)
	assert.Equal(t, "invalid_date", payload.Errors[0].Code)
}

func TestGetProductionSheetRangeErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code string
	}{
		{"reversed", deliverydomain.ErrInvalidDateRange, "invalid_date_range"},
		{"too long", deliverydomain.ErrDateRangeTooLong, "date_range_too_long"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.delivery.err = tc.err

			rec := ts.do(t, http.MethodGet, "/v1/teams/10/production?start=2024-03-10&end=2024-03-01", nil)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			payload := decodeError(t, rec)
			require.Len(t, payload.Errors, 1)
			assert.Equal(t, tc.code, payload.Errors[0].Code)
			assert.Equal(t, "end", payload.Errors[0].Field)
		})
	}
}

func TestGetProductionSheetPDF(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/v1/teams/10/production.pdf?start=2024-03-04&end=2024-03-04", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "production-2024-03-04-2024-03-04.pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
	assert.Equal(t, "2024-03-04", ts.delivery.productionReq.Start)
}

func TestGetCustomerUpcoming(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/v1/customers/101/upcoming?limit=3", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "101", ts.delivery.upcomingReq.CustomerID)
	assert.Equal(t, 3, ts.delivery.upcomingReq.Limit)

	rec = ts.do(t, http.MethodGet, "/v1/customers/101/upcoming?limit=-1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 1, ts.delivery.upcomingCalls)
}

func TestSchedulePriceUpdate(t *testing.T) {
	ts := newTestServer(t)

	body := []byte(`{"product_id":"7","new_unit_price":"12.00","effective_date":"2024-03-05","team_id":"999"}`)
	rec := ts.do(t, http.MethodPost, "/v1/teams/10/price-updates", body)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "10", ts.pricing.scheduleReq.TeamID)
	assert.Equal(t, "7", ts.pricing.scheduleReq.ProductID)
	assert.Equal(t, "12.00", ts.pricing.scheduleReq.NewUnitPrice)
}

func TestSchedulePriceUpdateErrors(t *testing.T) {
	cases := []struct {
		name   string
		body   string
		err    error
		status int
	}{
		{"malformed body", `{"product_id":`, nil, http.StatusBadRequest},
		{"past date", `{"product_id":"7"}`, pricingdomain.ErrEffectiveDateInPast, http.StatusBadRequest},
		{"unknown product", `{"product_id":"7"}`, pricingdomain.ErrProductNotFound, http.StatusNotFound},
		{"duplicate", `{"product_id":"7"}`, pricingdomain.ErrDuplicatePriceUpdate, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.pricing.err = tc.err

			rec := ts.do(t, http.MethodPost, "/v1/teams/10/price-updates", []byte(tc.body))
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestReconcileSubscription(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/v1/subscriptions/5/reconcile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"subscription_id":"5"`)

	ts.pricing.err = pricingdomain.ErrSubscriptionNotFound
	rec = ts.do(t, http.MethodPost, "/v1/subscriptions/5/reconcile", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeError(t, rec).Type)
}

func TestListCustomerNotifications(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/v1/customers/101/notifications?limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, snowflake.ID(101), ts.notifications.customerID)
	assert.Equal(t, 5, ts.notifications.limit)

	rec = ts.do(t, http.MethodGet, "/v1/customers/abc/notifications", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "customer", decodeError(t, rec).Errors[0].Field)
}

func TestClassifyErrorForLog(t *testing.T) {
	errorType, code := classifyErrorForLog(deliverydomain.ErrInvalidLimit)
	assert.Equal(t, "validation_error", errorType)
	assert.Equal(t, "invalid_limit", code)

	errorType, code = classifyErrorForLog(ErrRateLimited)
	assert.Equal(t, "rate_limited", errorType)
	assert.Equal(t, "rate_limited", code)

	status, _ := mapError(context.DeadlineExceeded)
	assert.Equal(t, http.StatusInternalServerError, status)
}
