package service

import (
	"time"

	"go-pos-ws/internal/cache"
	"go-pos-ws/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Stack bundles the services bound to one tenant database.
type Stack struct {
	TenantID string
	DB       *gorm.DB
	Products ProductService
	Sales    SaleService
	Reports  ReportService
}

// StackDeps are shared by every tenant stack.
type StackDeps struct {
	Feed              Publisher
	Cache             cache.ReportCache
	CacheTTL          time.Duration
	LowStockThreshold int
	Logger            *zap.Logger
}

func NewStack(tenantID string, db *gorm.DB, deps StackDeps) *Stack {
	productRepo := repository.NewProductRepo(db)
	saleRepo := repository.NewSaleRepo(db)
	reportRepo := repository.NewReportRepo(db)

	return &Stack{
		TenantID: tenantID,
		DB:       db,
		Products: NewProductService(tenantID, productRepo, db, deps.Feed, deps.LowStockThreshold),
		Sales:    NewSaleService(tenantID, saleRepo, productRepo, db, deps.Feed),
		Reports: NewReportService(tenantID, reportRepo, productRepo, deps.Cache, deps.CacheTTL,
			deps.LowStockThreshold, deps.Logger.With(zap.String("tenant_id", tenantID))),
	}
}
