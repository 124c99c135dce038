package repository

import (
	"context"
	"time"

	"go-pos-ws/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DashboardStats untuk overview stats
type DashboardStats struct {
	TotalProducts  int64           `json:"total_products"`
	LowStockCount  int64           `json:"low_stock_count"`
	TotalValuation decimal.Decimal `json:"total_valuation"`
	SalesToday     int64           `json:"sales_today"`
	RevenueToday   decimal.Decimal `json:"revenue_today"`
}

// DailySales is one chart bucket; Date is YYYY-MM-DD.
type DailySales struct {
	Date      string          `json:"date"`
	SaleCount int64           `json:"sale_count"`
	Revenue   decimal.Decimal `json:"revenue"`
	Units     int64           `json:"units"`
}

type TopProduct struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Units       int64           `json:"units"`
	Revenue     decimal.Decimal `json:"revenue"`
}

type PaymentSummary struct {
	PaymentMethod string          `json:"payment_method"`
	SaleCount     int64           `json:"sale_count"`
	Revenue       decimal.Decimal `json:"revenue"`
}

// ReportRepository aggregates completed sales and stock levels.
type ReportRepository interface {
	DashboardStats(ctx context.Context, lowStockThreshold int, dayStart, dayEnd time.Time) (*DashboardStats, error)
	DailySales(ctx context.Context, from, to time.Time) ([]DailySales, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error)
	PaymentBreakdown(ctx context.Context, from, to time.Time) ([]PaymentSummary, error)
}

type reportRepo struct {
	db *gorm.DB
}

func NewReportRepo(db *gorm.DB) ReportRepository {
	return &reportRepo{db}
}

func (r *reportRepo) DashboardStats(ctx context.Context, lowStockThreshold int, dayStart, dayEnd time.Time) (*DashboardStats, error) {
	var stats DashboardStats
	db := r.db.WithContext(ctx)

	if err := db.Model(&model.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}

	if err := db.Model(&model.Product{}).
		Where("(min_stock > 0 AND stock <= min_stock) OR (min_stock = 0 AND stock <= ?)", lowStockThreshold).
		Count(&stats.LowStockCount).Error; err != nil {
		return nil, err
	}

	var valuation struct {
		Value decimal.Decimal
	}
	if err := db.Model(&model.Product{}).
		Select("COALESCE(SUM(stock * price), 0) AS value").
		Scan(&valuation).Error; err != nil {
		return nil, err
	}
	stats.TotalValuation = valuation.Value

	var today struct {
		Count   int64
		Revenue decimal.Decimal
	}
	if err := db.Model(&model.Sale{}).
		Select("COUNT(*) AS count, COALESCE(SUM(total), 0) AS revenue").
		Where("status = ? AND sale_date >= ? AND sale_date < ?", model.SaleCompleted, dayStart, dayEnd).
		Scan(&today).Error; err != nil {
		return nil, err
	}
	stats.SalesToday = today.Count
	stats.RevenueToday = today.Revenue

	return &stats, nil
}

func (r *reportRepo) DailySales(ctx context.Context, from, to time.Time) ([]DailySales, error) {
	results := []DailySales{}

	rows, err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select(`
			CAST(DATE(sale_date) AS TEXT) AS date,
			COUNT(*) AS sale_count,
			COALESCE(SUM(total), 0) AS revenue,
			COALESCE(SUM(item_count), 0) AS units
		`).
		Where("status = ? AND sale_date >= ? AND sale_date < ?", model.SaleCompleted, from, to).
		Group("DATE(sale_date)").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var data DailySales
		if err := rows.Scan(&data.Date, &data.SaleCount, &data.Revenue, &data.Units); err != nil {
			return nil, err
		}
		results = append(results, data)
	}

	return results, rows.Err()
}

func (r *reportRepo) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]TopProduct, error) {
	results := []TopProduct{}
	err := r.db.WithContext(ctx).
		Table("sale_items").
		Select(`
			sale_items.product_id AS product_id,
			MAX(sale_items.product_name) AS product_name,
			SUM(sale_items.quantity) AS units,
			COALESCE(SUM(sale_items.subtotal), 0) AS revenue
		`).
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.status = ? AND sales.sale_date >= ? AND sales.sale_date < ? AND sales.deleted_at IS NULL",
			model.SaleCompleted, from, to).
		Group("sale_items.product_id").
		Order("units DESC, product_name ASC").
		Limit(limit).
		Scan(&results).Error
	return results, err
}

func (r *reportRepo) PaymentBreakdown(ctx context.Context, from, to time.Time) ([]PaymentSummary, error) {
	results := []PaymentSummary{}
	err := r.db.WithContext(ctx).Model(&model.Sale{}).
		Select("payment_method, COUNT(*) AS sale_count, COALESCE(SUM(total), 0) AS revenue").
		Where("status = ? AND sale_date >= ? AND sale_date < ?", model.SaleCompleted, from, to).
		Group("payment_method").
		Order("revenue DESC").
		Scan(&results).Error
	return results, err
}
