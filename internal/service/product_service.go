package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/ws"
	"go-pos-ws/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 200
)

type ProductService interface {
	CreateProduct(ctx context.Context, req *model.Product, actor Actor) error
	UpdateProduct(ctx context.Context, id uuid.UUID, req *model.Product, actor Actor) (*model.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID, actor Actor) error
	GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error)
	ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, int64, error)
	SearchProducts(ctx context.Context, term string, limit int) ([]model.Product, error)
	CheckStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta int, actor Actor) (*model.Product, error)
	Categories(ctx context.Context) ([]string, error)
	LowStock(ctx context.Context) ([]model.Product, error)
}

// StockAdjustment is the body of a manual stock correction. Delta may be
// negative.
type StockAdjustment struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"max=255"`
}

type productService struct {
	tenantID          string
	productRepo       repository.ProductRepository
	db                *gorm.DB
	feed              Publisher
	lowStockThreshold int
}

func NewProductService(tenantID string, repo repository.ProductRepository, db *gorm.DB, feed Publisher, lowStockThreshold int) ProductService {
	return &productService{
		tenantID:          tenantID,
		productRepo:       repo,
		db:                db,
		feed:              feed,
		lowStockThreshold: lowStockThreshold,
	}
}

func normalizeProduct(p *model.Product) {
	p.Code = strings.TrimSpace(p.Code)
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	if p.Barcode != nil {
		b := strings.TrimSpace(*p.Barcode)
		if b == "" {
			p.Barcode = nil
		} else {
			p.Barcode = &b
		}
	}
	p.Price = p.Price.Round(2)
}

// checkUnique rejects a code or barcode already used by another product.
func (s *productService) checkUnique(ctx context.Context, p *model.Product) error {
	existing, err := s.productRepo.FindByCode(ctx, p.Code)
	if err == nil && existing.ID != p.ID {
		return ErrDuplicateCode
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	if p.Barcode == nil {
		return nil
	}
	existing, err = s.productRepo.FindByBarcode(ctx, *p.Barcode)
	if err == nil && existing.ID != p.ID {
		return ErrDuplicateBarcode
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func (s *productService) CreateProduct(ctx context.Context, req *model.Product, actor Actor) error {
	normalizeProduct(req)
	if err := validator.Check(req); err != nil {
		return err
	}
	if err := s.checkUnique(ctx, req); err != nil {
		return err
	}

	req.ID = uuid.Nil
	req.Stamp(actor.String())

	if err := s.productRepo.Create(ctx, req); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("create product: %w", err)
	}

	s.feed.Publish(ws.Change(s.tenantID, ws.TableProducts, ws.ActionInsert, req, actor.wsActor()))
	return nil
}

func (s *productService) UpdateProduct(ctx context.Context, id uuid.UUID, req *model.Product, actor Actor) (*model.Product, error) {
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	normalizeProduct(req)
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	req.ID = id
	if err := s.checkUnique(ctx, req); err != nil {
		return nil, err
	}

	product.Code = req.Code
	product.Name = req.Name
	product.Barcode = req.Barcode
	product.Price = req.Price
	product.MinStock = req.MinStock
	product.Category = req.Category
	product.UpdatedBy = actor.String()

	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateCode
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	// Reload for the live stock, which sales may have moved meanwhile.
	if product, err = s.GetProduct(ctx, id); err != nil {
		return nil, err
	}

	s.feed.Publish(ws.Change(s.tenantID, ws.TableProducts, ws.ActionUpdate, product, actor.wsActor()))
	return product, nil
}

func (s *productService) DeleteProduct(ctx context.Context, id uuid.UUID, actor Actor) error {
	if err := s.productRepo.Delete(ctx, id, actor.String()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("delete product: %w", err)
	}

	s.feed.Publish(ws.Change(s.tenantID, ws.TableProducts, ws.ActionDelete, map[string]interface{}{"id": id}, actor.wsActor()))
	return nil
}

func (s *productService) GetProduct(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) ListProducts(ctx context.Context, f repository.ProductFilter) ([]model.Product, int64, error) {
	return s.productRepo.FindAll(ctx, f)
}

// SearchProducts matches term against name, code, barcode and category.
// A blank term yields no results without querying.
func (s *productService) SearchProducts(ctx context.Context, term string, limit int) ([]model.Product, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []model.Product{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}
	return s.productRepo.Search(ctx, term, limit)
}

// CheckStock answers whether quantity units are on hand right now. Nothing
// is reserved.
func (s *productService) CheckStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error) {
	if quantity <= 0 {
		return false, ErrInvalidQuantity
	}
	product, err := s.GetProduct(ctx, id)
	if err != nil {
		return false, err
	}
	return product.Stock >= quantity, nil
}

func (s *productService) AdjustStock(ctx context.Context, id uuid.UUID, delta int, actor Actor) (*model.Product, error) {
	if delta == 0 {
		return nil, ErrInvalidQuantity
	}

	var product *model.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.productRepo.LockByIDs(tx, []uuid.UUID{id})
		if err != nil {
			return err
		}
		if len(locked) == 0 {
			return ErrProductNotFound
		}
		product = &locked[0]

		if delta > 0 {
			if err := s.productRepo.IncrementStock(tx, id, delta, actor.String()); err != nil {
				return err
			}
		} else {
			ok, err := s.productRepo.DecrementStock(tx, id, -delta, actor.String())
			if err != nil {
				return err
			}
			if !ok {
				return &InsufficientStockError{Shortages: []Shortage{{
					ProductID:   id,
					ProductName: product.Name,
					Requested:   -delta,
					Available:   product.Stock,
				}}}
			}
		}
		product.Stock += delta
		product.UpdatedBy = actor.String()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.feed.Publish(ws.Change(s.tenantID, ws.TableProducts, ws.ActionUpdate, product, actor.wsActor()))
	return product, nil
}

func (s *productService) Categories(ctx context.Context) ([]string, error) {
	categories, err := s.productRepo.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []string{}
	}
	return categories, nil
}

func (s *productService) LowStock(ctx context.Context) ([]model.Product, error) {
	return s.productRepo.LowStock(ctx, s.lowStockThreshold)
}

// lineTotal is price * quantity rounded to cents.
func lineTotal(price decimal.Decimal, quantity int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
}
