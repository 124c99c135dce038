package repository

import (
	"context"
	"time"

	"go-pos-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaleFilter narrows sale listings. Zero values mean "any".
type SaleFilter struct {
	From          *time.Time
	To            *time.Time
	Status        model.SaleStatus
	PaymentMethod model.PaymentMethod
	Page          int
	PageSize      int
}

type SaleRepository interface {
	FindAll(ctx context.Context, f SaleFilter) ([]model.Sale, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error)

	// Methods below take the caller's transaction handle.
	Create(tx *gorm.DB, sale *model.Sale) error
	CreateItems(tx *gorm.DB, items []model.SaleItem) error
	LockByID(tx *gorm.DB, id uuid.UUID) (*model.Sale, error)
	UpdateStatus(tx *gorm.DB, id uuid.UUID, status model.SaleStatus, updatedBy string) error
}

type saleRepo struct {
	db *gorm.DB
}

func NewSaleRepo(db *gorm.DB) SaleRepository {
	return &saleRepo{db}
}

func (r *saleRepo) FindAll(ctx context.Context, f SaleFilter) ([]model.Sale, int64, error) {
	var (
		sales []model.Sale
		total int64
	)

	query := r.db.WithContext(ctx).Model(&model.Sale{})
	if f.From != nil {
		query = query.Where("sale_date >= ?", *f.From)
	}
	if f.To != nil {
		query = query.Where("sale_date < ?", *f.To)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.PaymentMethod != "" {
		query = query.Where("payment_method = ?", f.PaymentMethod)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("sale_date DESC")
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * f.PageSize).Limit(f.PageSize)
	}
	err := query.Find(&sales).Error
	return sales, total, err
}

func (r *saleRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// Create inserts the sale header only; items go through CreateItems.
func (r *saleRepo) Create(tx *gorm.DB, sale *model.Sale) error {
	return tx.Omit(clause.Associations).Create(sale).Error
}

func (r *saleRepo) CreateItems(tx *gorm.DB, items []model.SaleItem) error {
	if len(items) == 0 {
		return nil
	}
	return tx.Create(&items).Error
}

func (r *saleRepo) LockByID(tx *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	var sale model.Sale
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepo) UpdateStatus(tx *gorm.DB, id uuid.UUID, status model.SaleStatus, updatedBy string) error {
	return tx.Model(&model.Sale{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_by": updatedBy,
		}).Error
}
