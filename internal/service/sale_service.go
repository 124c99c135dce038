package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/ws"
	"go-pos-ws/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleLine is one cart line. Price overrides the catalog price when set.
type SaleLine struct {
	ProductID uuid.UUID        `json:"product_id" validate:"uuid_required"`
	Quantity  int              `json:"quantity" validate:"gt=0"`
	Price     *decimal.Decimal `json:"price,omitempty" validate:"omitempty,decimal_gte0"`
}

type CreateSaleRequest struct {
	Items         []SaleLine          `json:"items" validate:"required,min=1,dive"`
	PaymentMethod model.PaymentMethod `json:"payment_method" validate:"required,oneof=cash card transfer ewallet"`
	CustomerName  string              `json:"customer_name" validate:"max=255"`
	Note          string              `json:"note" validate:"max=1000"`
}

type SaleService interface {
	CreateSale(ctx context.Context, req *CreateSaleRequest, actor Actor) (*model.Sale, error)
	CancelSale(ctx context.Context, id uuid.UUID, actor Actor) (*model.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error)
	ListSales(ctx context.Context, f repository.SaleFilter) ([]model.Sale, int64, error)
}

type saleService struct {
	tenantID    string
	saleRepo    repository.SaleRepository
	productRepo repository.ProductRepository
	db          *gorm.DB
	feed        Publisher
	now         func() time.Time
}

func NewSaleService(tenantID string, saleRepo repository.SaleRepository, productRepo repository.ProductRepository, db *gorm.DB, feed Publisher) SaleService {
	return &saleService{
		tenantID:    tenantID,
		saleRepo:    saleRepo,
		productRepo: productRepo,
		db:          db,
		feed:        feed,
		now:         time.Now,
	}
}

// CreateSale finalizes a checkout in one transaction: every product row is
// locked, all shortages are reported together, stock is decremented with a
// guard, then the header and its lines are inserted. Either everything is
// written or nothing is.
func (s *saleService) CreateSale(ctx context.Context, req *CreateSaleRequest, actor Actor) (*model.Sale, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	// Requested units per product, in first-seen order.
	order := make([]uuid.UUID, 0, len(req.Items))
	wanted := make(map[uuid.UUID]int, len(req.Items))
	for _, line := range req.Items {
		if _, seen := wanted[line.ProductID]; !seen {
			order = append(order, line.ProductID)
		}
		wanted[line.ProductID] += line.Quantity
	}

	sale := &model.Sale{
		Date:          s.now().UTC(),
		Status:        model.SaleCompleted,
		PaymentMethod: req.PaymentMethod,
		CustomerName:  req.CustomerName,
		Note:          req.Note,
		Total:         decimal.Zero,
	}
	sale.Stamp(actor.String())
	if actor.ID != uuid.Nil {
		cashier := actor.ID
		sale.CashierID = &cashier
	}

	var touched []model.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.productRepo.LockByIDs(tx, order)
		if err != nil {
			return err
		}
		products := make(map[uuid.UUID]model.Product, len(locked))
		for _, p := range locked {
			products[p.ID] = p
		}

		var shortages []Shortage
		for _, id := range order {
			p, ok := products[id]
			if !ok || p.Stock < wanted[id] {
				shortages = append(shortages, Shortage{
					ProductID:   id,
					ProductName: p.Name,
					Requested:   wanted[id],
					Available:   p.Stock,
				})
			}
		}
		if len(shortages) > 0 {
			return &InsufficientStockError{Shortages: shortages}
		}

		for _, id := range order {
			ok, err := s.productRepo.DecrementStock(tx, id, wanted[id], actor.String())
			if err != nil {
				return err
			}
			if !ok {
				p := products[id]
				return &InsufficientStockError{Shortages: []Shortage{{
					ProductID:   id,
					ProductName: p.Name,
					Requested:   wanted[id],
					Available:   p.Stock,
				}}}
			}
			p := products[id]
			p.Stock -= wanted[id]
			touched = append(touched, p)
		}

		items := make([]model.SaleItem, len(req.Items))
		for i, line := range req.Items {
			p := products[line.ProductID]
			price := p.Price
			if line.Price != nil {
				price = *line.Price
			}
			price = price.Round(2)
			subtotal := lineTotal(price, line.Quantity)

			items[i] = model.SaleItem{
				ProductID:   p.ID,
				ProductName: p.Name,
				Quantity:    line.Quantity,
				Price:       price,
				Subtotal:    subtotal,
			}
			sale.Total = sale.Total.Add(subtotal)
			sale.ItemCount += line.Quantity
		}

		if err := s.saleRepo.Create(tx, sale); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		for i := range items {
			items[i].SaleID = sale.ID
		}
		if err := s.saleRepo.CreateItems(tx, items); err != nil {
			return fmt.Errorf("insert sale items: %w", err)
		}
		sale.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}

	who := actor.wsActor()
	s.feed.Publish(ws.Change(s.tenantID, ws.TableSales, ws.ActionInsert, sale, who))
	for i := range sale.Items {
		s.feed.Publish(ws.Change(s.tenantID, ws.TableSaleItems, ws.ActionInsert, sale.Items[i], who))
	}
	for i := range touched {
		s.feed.Publish(ws.Change(s.tenantID, ws.TableProducts, ws.ActionUpdate, touched[i], who))
	}
	return sale, nil
}

// CancelSale marks a completed sale cancelled and puts its units back on
// the shelf.
func (s *saleService) CancelSale(ctx context.Context, id uuid.UUID, actor Actor) (*model.Sale, error) {
	var restocked []uuid.UUID
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := s.saleRepo.LockByID(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSaleNotFound
			}
			return err
		}
		if sale.Status == model.SaleCancelled {
			return ErrSaleAlreadyCancelled
		}

		for _, item := range sale.Items {
			if err := s.productRepo.IncrementStock(tx, item.ProductID, item.Quantity, actor.String()); err != nil {
				return err
			}
			restocked = append(restocked, item.ProductID)
		}
		return s.saleRepo.UpdateStatus(tx, id, model.SaleCancelled, actor.String())
	})
	if err != nil {
		return nil, err
	}

	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}

	who := actor.wsActor()
	s.feed.Publish(ws.Change(s.tenantID, ws.TableSales, ws.ActionUpdate, sale, who))
	for _, pid := range restocked {
		if p, err := s.productRepo.FindByID(ctx, pid); err == nil {
			s.feed.Publish(ws.Change(s.tenantID, ws.TableProducts, ws.ActionUpdate, p, who))
		}
	}
	return sale, nil
}

func (s *saleService) GetSale(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSaleNotFound
		}
		return nil, err
	}
	return sale, nil
}

func (s *saleService) ListSales(ctx context.Context, f repository.SaleFilter) ([]model.Sale, int64, error) {
	return s.saleRepo.FindAll(ctx, f)
}
