package repository

import (
	"context"
	"testing"
	"time"

	"go-pos-ws/internal/model"
	"go-pos-ws/internal/testutil"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedSale(t *testing.T, db *gorm.DB, date time.Time, status model.SaleStatus, method model.PaymentMethod, lines ...model.SaleItem) *model.Sale {
	t.Helper()
	repo := NewSaleRepo(db)

	sale := &model.Sale{
		Date:          date.UTC(),
		Status:        status,
		PaymentMethod: method,
		Total:         decimal.Zero,
	}
	for _, l := range lines {
		sale.Total = sale.Total.Add(l.Subtotal)
		sale.ItemCount += l.Quantity
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := repo.Create(tx, sale); err != nil {
			return err
		}
		items := make([]model.SaleItem, len(lines))
		for i, l := range lines {
			l.SaleID = sale.ID
			items[i] = l
		}
		return repo.CreateItems(tx, items)
	})
	require.NoError(t, err)
	return sale
}

func line(productID uuid.UUID, name string, qty int, price int64) model.SaleItem {
	p := decimal.NewFromInt(price)
	return model.SaleItem{
		ProductID:   productID,
		ProductName: name,
		Quantity:    qty,
		Price:       p,
		Subtotal:    p.Mul(decimal.NewFromInt(int64(qty))),
	}
}

func TestSaleRepo_CreateAndFind(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewSaleRepo(db)
	ctx := context.Background()

	apple, banana := uuid.New(), uuid.New()
	sale := seedSale(t, db, time.Now(), model.SaleCompleted, model.PaymentCash,
		line(apple, "Apple", 2, 3),
		line(banana, "Banana", 1, 5),
	)

	found, err := repo.FindByID(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, found.ItemCount)
	assert.True(t, found.Total.Equal(decimal.NewFromInt(11)), found.Total.String())
	require.Len(t, found.Items, 2)
	for _, item := range found.Items {
		assert.Equal(t, sale.ID, item.SaleID)
	}

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSaleRepo_FindAllFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewSaleRepo(db)
	ctx := context.Background()

	now := time.Now().UTC()
	product := uuid.New()
	seedSale(t, db, now.Add(-72*time.Hour), model.SaleCompleted, model.PaymentCash, line(product, "P", 1, 1))
	seedSale(t, db, now.Add(-time.Hour), model.SaleCompleted, model.PaymentCard, line(product, "P", 1, 1))
	seedSale(t, db, now.Add(-time.Hour), model.SaleCancelled, model.PaymentCash, line(product, "P", 1, 1))

	all, total, err := repo.FindAll(ctx, SaleFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, all, 3)

	from := now.Add(-24 * time.Hour)
	recent, total, err := repo.FindAll(ctx, SaleFilter{From: &from})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, recent, 2)

	_, total, err = repo.FindAll(ctx, SaleFilter{Status: model.SaleCompleted, PaymentMethod: model.PaymentCash})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	page, total, err := repo.FindAll(ctx, SaleFilter{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, page, 2)
}

func TestSaleRepo_UpdateStatus(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewSaleRepo(db)

	sale := seedSale(t, db, time.Now(), model.SaleCompleted, model.PaymentCash, line(uuid.New(), "P", 1, 1))

	err := db.Transaction(func(tx *gorm.DB) error {
		locked, err := repo.LockByID(tx, sale.ID)
		if err != nil {
			return err
		}
		assert.Len(t, locked.Items, 1)
		return repo.UpdateStatus(tx, sale.ID, model.SaleCancelled, "manager")
	})
	require.NoError(t, err)

	found, err := repo.FindByID(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SaleCancelled, found.Status)
	assert.Equal(t, "manager", found.UpdatedBy)
}
