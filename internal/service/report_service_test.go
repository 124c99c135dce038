package service

import (
	"context"
	"testing"
	"time"

	"go-pos-ws/internal/cache"
	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/ws"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingReports wraps a real repository and counts dashboard queries.
type countingReports struct {
	repository.ReportRepository
	dashboards int
	daily      int
}

func (c *countingReports) DashboardStats(ctx context.Context, threshold int, from, to time.Time) (*repository.DashboardStats, error) {
	c.dashboards++
	return c.ReportRepository.DashboardStats(ctx, threshold, from, to)
}

func (c *countingReports) DailySales(ctx context.Context, from, to time.Time) ([]repository.DailySales, error) {
	c.daily++
	return c.ReportRepository.DailySales(ctx, from, to)
}

func TestReportService_DashboardIsCachedUntilChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hub := ws.NewHub(zap.NewNop(), 64)
	mem := cache.NewMemory()
	InvalidateReportsOnChange(hub, mem, zap.NewNop())

	counting := &countingReports{ReportRepository: repository.NewReportRepo(f.db)}
	products := repository.NewProductRepo(f.db)
	reports := NewReportService("", counting, products, mem, time.Minute, 5, zap.NewNop())
	sales := NewSaleService("", repository.NewSaleRepo(f.db), products, f.db, hub)

	p := f.product(t, "A", 10, "4")

	first, err := reports.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.TotalProducts)
	assert.Equal(t, "40", first.TotalValuation.String())
	assert.Zero(t, first.SalesToday)

	_, err = reports.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counting.dashboards)

	_, err = sales.CreateSale(ctx, &CreateSaleRequest{
		Items:         []SaleLine{{ProductID: p.ID, Quantity: 2}},
		PaymentMethod: model.PaymentCash,
	}, Actor{})
	require.NoError(t, err)

	after, err := reports.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counting.dashboards)
	assert.Equal(t, int64(1), after.SalesToday)
	assert.Equal(t, "8", after.RevenueToday.String())
	assert.Equal(t, "32", after.TotalValuation.String())
}

func TestReportService_DailySalesFillsGaps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "A", 100, "2")

	now := time.Date(2026, 5, 20, 15, 0, 0, 0, time.UTC)
	sales := NewSaleService("", repository.NewSaleRepo(f.db), repository.NewProductRepo(f.db), f.db, f.feed).(*saleService)
	for _, at := range []time.Time{now.AddDate(0, 0, -2), now, now} {
		at := at
		sales.now = func() time.Time { return at }
		_, err := sales.CreateSale(ctx, &CreateSaleRequest{
			Items:         []SaleLine{{ProductID: p.ID, Quantity: 3}},
			PaymentMethod: model.PaymentCash,
		}, Actor{})
		require.NoError(t, err)
	}

	counting := &countingReports{ReportRepository: repository.NewReportRepo(f.db)}
	svc := NewReportService("", counting, repository.NewProductRepo(f.db), cache.NewMemory(), time.Minute, 5, zap.NewNop()).(*reportService)
	svc.now = func() time.Time { return now }

	days, err := svc.DailySales(ctx, 4)
	require.NoError(t, err)
	require.Len(t, days, 4)
	assert.Equal(t, "2026-05-17", days[0].Date)
	assert.Zero(t, days[0].SaleCount)
	assert.True(t, days[0].Revenue.IsZero())
	assert.Equal(t, "2026-05-18", days[1].Date)
	assert.Equal(t, int64(1), days[1].SaleCount)
	assert.Equal(t, int64(0), days[2].SaleCount)
	assert.Equal(t, "2026-05-20", days[3].Date)
	assert.Equal(t, int64(2), days[3].SaleCount)
	assert.Equal(t, int64(6), days[3].Units)
	assert.Equal(t, "12", days[3].Revenue.String())

	_, err = svc.DailySales(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, counting.daily)

	week, err := svc.DailySales(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, week, DefaultReportDays)

	year, err := svc.DailySales(ctx, 10_000)
	require.NoError(t, err)
	assert.Len(t, year, MaxReportDays)
}

func TestReportService_TopProductsAndPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.product(t, "A", 100, "1")
	b := f.product(t, "B", 100, "5")

	for _, req := range []*CreateSaleRequest{
		{Items: []SaleLine{{ProductID: a.ID, Quantity: 5}}, PaymentMethod: model.PaymentCash},
		{Items: []SaleLine{{ProductID: b.ID, Quantity: 2}}, PaymentMethod: model.PaymentCard},
	} {
		_, err := f.stack.Sales.CreateSale(ctx, req, Actor{})
		require.NoError(t, err)
	}

	top, err := f.stack.Reports.TopProducts(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, a.ID.String(), top[0].ProductID)
	assert.Equal(t, int64(5), top[0].Units)

	one, err := f.stack.Reports.TopProducts(ctx, 7, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)

	payments, err := f.stack.Reports.PaymentBreakdown(ctx, 7)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.Equal(t, "card", payments[0].PaymentMethod)
	assert.Equal(t, "10", payments[0].Revenue.String())

	low, err := f.stack.Reports.LowStock(ctx)
	require.NoError(t, err)
	assert.NotNil(t, low)
	assert.Empty(t, low)
}
