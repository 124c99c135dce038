package service

import (
	"context"
	"fmt"
	"time"

	"go-pos-ws/internal/cache"
	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/ws"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	DefaultReportDays = 7
	MaxReportDays     = 366
	DefaultTopLimit   = 5
	MaxTopLimit       = 50
)

type ReportService interface {
	Dashboard(ctx context.Context) (*repository.DashboardStats, error)
	DailySales(ctx context.Context, days int) ([]repository.DailySales, error)
	TopProducts(ctx context.Context, days, limit int) ([]repository.TopProduct, error)
	PaymentBreakdown(ctx context.Context, days int) ([]repository.PaymentSummary, error)
	LowStock(ctx context.Context) ([]model.Product, error)
}

type reportService struct {
	tenantID          string
	reportRepo        repository.ReportRepository
	productRepo       repository.ProductRepository
	cache             cache.ReportCache
	ttl               time.Duration
	lowStockThreshold int
	log               *zap.Logger
	now               func() time.Time
}

func NewReportService(tenantID string, reportRepo repository.ReportRepository, productRepo repository.ProductRepository,
	c cache.ReportCache, ttl time.Duration, lowStockThreshold int, log *zap.Logger) ReportService {
	return &reportService{
		tenantID:          tenantID,
		reportRepo:        reportRepo,
		productRepo:       productRepo,
		cache:             c,
		ttl:               ttl,
		lowStockThreshold: lowStockThreshold,
		log:               log.Named("reports"),
		now:               time.Now,
	}
}

// cached serves key from the report cache, computing and storing it on a
// miss. Cache failures fall through to the database.
func cached[T any](ctx context.Context, s *reportService, key string, load func() (T, error)) (T, error) {
	var out T
	if s.cache != nil {
		found, err := s.cache.Get(ctx, s.tenantID, key, &out)
		if err != nil {
			s.log.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
		} else if found {
			return out, nil
		}
	}

	out, err := load()
	if err != nil {
		return out, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, s.tenantID, key, out, s.ttl); err != nil {
			s.log.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return out, nil
}

func clampDays(days int) int {
	if days <= 0 {
		return DefaultReportDays
	}
	if days > MaxReportDays {
		return MaxReportDays
	}
	return days
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// window returns [first day, day after today) covering days calendar days.
func (s *reportService) window(days int) (time.Time, time.Time) {
	today := startOfDay(s.now().UTC())
	return today.AddDate(0, 0, -(days - 1)), today.AddDate(0, 0, 1)
}

func (s *reportService) Dashboard(ctx context.Context) (*repository.DashboardStats, error) {
	today := startOfDay(s.now().UTC())
	key := "dashboard:" + today.Format("2006-01-02")
	return cached(ctx, s, key, func() (*repository.DashboardStats, error) {
		return s.reportRepo.DashboardStats(ctx, s.lowStockThreshold, today, today.AddDate(0, 0, 1))
	})
}

// DailySales returns one bucket per day, oldest first; days without sales
// are zero-filled.
func (s *reportService) DailySales(ctx context.Context, days int) ([]repository.DailySales, error) {
	days = clampDays(days)
	from, to := s.window(days)
	key := fmt.Sprintf("daily:%s:%d", from.Format("2006-01-02"), days)

	return cached(ctx, s, key, func() ([]repository.DailySales, error) {
		rows, err := s.reportRepo.DailySales(ctx, from, to)
		if err != nil {
			return nil, err
		}
		byDate := make(map[string]repository.DailySales, len(rows))
		for _, r := range rows {
			byDate[r.Date] = r
		}

		out := make([]repository.DailySales, 0, days)
		for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
			date := d.Format("2006-01-02")
			if r, ok := byDate[date]; ok {
				out = append(out, r)
				continue
			}
			out = append(out, repository.DailySales{Date: date, Revenue: decimal.Zero})
		}
		return out, nil
	})
}

func (s *reportService) TopProducts(ctx context.Context, days, limit int) ([]repository.TopProduct, error) {
	days = clampDays(days)
	if limit <= 0 {
		limit = DefaultTopLimit
	}
	if limit > MaxTopLimit {
		limit = MaxTopLimit
	}
	from, to := s.window(days)
	key := fmt.Sprintf("top:%s:%d:%d", from.Format("2006-01-02"), days, limit)

	return cached(ctx, s, key, func() ([]repository.TopProduct, error) {
		return s.reportRepo.TopProducts(ctx, from, to, limit)
	})
}

func (s *reportService) PaymentBreakdown(ctx context.Context, days int) ([]repository.PaymentSummary, error) {
	days = clampDays(days)
	from, to := s.window(days)
	key := fmt.Sprintf("payments:%s:%d", from.Format("2006-01-02"), days)

	return cached(ctx, s, key, func() ([]repository.PaymentSummary, error) {
		return s.reportRepo.PaymentBreakdown(ctx, from, to)
	})
}

// LowStock is always read live; the list drives restocking.
func (s *reportService) LowStock(ctx context.Context) ([]model.Product, error) {
	products, err := s.productRepo.LowStock(ctx, s.lowStockThreshold)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []model.Product{}
	}
	return products, nil
}

// FeedSource is where in-process change listeners attach. *ws.Hub
// implements it.
type FeedSource interface {
	Listen(fn ws.Listener)
}

// InvalidateReportsOnChange drops a tenant's cached reports whenever its
// products or sales change.
func InvalidateReportsOnChange(feed FeedSource, c cache.ReportCache, log *zap.Logger) {
	feed.Listen(func(e ws.Event) {
		if !e.IsDataChange() {
			return
		}
		if err := c.Invalidate(context.Background(), e.TenantID); err != nil {
			log.Warn("report cache invalidation failed", zap.String("tenant_id", e.TenantID), zap.Error(err))
		}
	})
}
