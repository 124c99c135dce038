package repository

import (
	"context"
	"strings"

	"go-pos-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductFilter narrows catalog listings. PageSize 0 returns everything.
type ProductFilter struct {
	Category string
	Page     int
	PageSize int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	FindAll(ctx context.Context, f ProductFilter) ([]model.Product, int64, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error)
	FindByCode(ctx context.Context, code string) (*model.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uuid.UUID, deletedBy string) error
	Search(ctx context.Context, term string, limit int) ([]model.Product, error)
	Categories(ctx context.Context) ([]string, error)
	LowStock(ctx context.Context, threshold int) ([]model.Product, error)

	// Methods below take the caller's transaction handle.
	LockByIDs(tx *gorm.DB, ids []uuid.UUID) ([]model.Product, error)
	DecrementStock(tx *gorm.DB, id uuid.UUID, quantity int, updatedBy string) (bool, error)
	IncrementStock(tx *gorm.DB, id uuid.UUID, quantity int, updatedBy string) error
}

type productRepo struct {
	db *gorm.DB
}

func NewProductRepo(db *gorm.DB) ProductRepository {
	return &productRepo{db}
}

func (r *productRepo) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepo) FindAll(ctx context.Context, f ProductFilter) ([]model.Product, int64, error) {
	var (
		products []model.Product
		total    int64
	)

	query := r.db.WithContext(ctx).Model(&model.Product{})
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = query.Order("name ASC")
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * f.PageSize).Limit(f.PageSize)
	}
	err := query.Find(&products).Error
	return products, total, err
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) FindByCode(ctx context.Context, code string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) FindByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, "barcode = ?", barcode).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// Update writes the catalog fields of product. Stock is left alone; it only
// moves through the locked stock methods.
func (r *productRepo) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Model(product).
		Select("code", "name", "barcode", "price", "min_stock", "category", "updated_by", "updated_at").
		Updates(product).Error
}

// Delete soft-deletes the product and records who did it.
func (r *productRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Product{}).Where("id = ?", id).Update("deleted_by", deletedBy)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Delete(&model.Product{}, "id = ?", id).Error
	})
}

// Search matches term as a case-insensitive substring of name, code, barcode
// or category. LIKE wildcards in term are matched literally.
func (r *productRepo) Search(ctx context.Context, term string, limit int) ([]model.Product, error) {
	var products []model.Product
	like := "%" + escapeLike(strings.ToLower(term)) + "%"
	err := r.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(code) LIKE ? ESCAPE '\' OR LOWER(COALESCE(barcode, '')) LIKE ? ESCAPE '\' OR LOWER(category) LIKE ? ESCAPE '\'`,
			like, like, like, like).
		Order("name ASC").
		Limit(limit).
		Find(&products).Error
	return products, err
}

func (r *productRepo) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("category <> ''").
		Distinct("category").
		Order("category ASC").
		Pluck("category", &categories).Error
	return categories, err
}

// LowStock lists products at or below their reorder point; threshold applies
// to products without their own min_stock.
func (r *productRepo) LowStock(ctx context.Context, threshold int) ([]model.Product, error) {
	var products []model.Product
	err := r.db.WithContext(ctx).
		Where("(min_stock > 0 AND stock <= min_stock) OR (min_stock = 0 AND stock <= ?)", threshold).
		Order("stock ASC, name ASC").
		Find(&products).Error
	return products, err
}

// LockByIDs loads the products with a row lock held until tx ends.
func (r *productRepo) LockByIDs(tx *gorm.DB, ids []uuid.UUID) ([]model.Product, error) {
	var products []model.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&products).Error
	return products, err
}

// DecrementStock removes quantity only if enough stock is left. It reports
// false when the guard rejected the update.
func (r *productRepo) DecrementStock(tx *gorm.DB, id uuid.UUID, quantity int, updatedBy string) (bool, error) {
	res := tx.Model(&model.Product{}).
		Where("id = ? AND stock >= ?", id, quantity).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", quantity),
			"updated_by": updatedBy,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *productRepo) IncrementStock(tx *gorm.DB, id uuid.UUID, quantity int, updatedBy string) error {
	return tx.Model(&model.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock + ?", quantity),
			"updated_by": updatedBy,
		}).Error
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
