package service

import (
	"context"
	"testing"

	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/ws"
	"go-pos-ws/pkg/validator"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// searchSpy fails the test on any repository use other than Search.
type searchSpy struct {
	repository.ProductRepository
	calls int
}

func (s *searchSpy) Search(ctx context.Context, term string, limit int) ([]model.Product, error) {
	s.calls++
	return []model.Product{}, nil
}

func TestProductService_Create(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	actor := Actor{ID: uuid.New(), Name: "Manager"}

	p := &model.Product{Code: " SKU-1 ", Name: "Rice", Stock: 5, Price: decimal.RequireFromString("10.555"), Barcode: new(string)}
	require.NoError(t, f.stack.Products.CreateProduct(ctx, p, actor))

	assert.Equal(t, "SKU-1", p.Code)
	assert.Nil(t, p.Barcode)
	assert.Equal(t, "10.56", p.Price.StringFixed(2))
	assert.Equal(t, actor.ID.String(), p.CreatedBy)

	events := f.feed.byTable(ws.TableProducts)
	require.Len(t, events, 1)
	assert.Equal(t, ws.ActionInsert, events[0].Action)
	assert.Equal(t, actor.ID.String(), events[0].Actor.ID)

	t.Run("duplicate code", func(t *testing.T) {
		dup := &model.Product{Code: "SKU-1", Name: "Other", Price: decimal.NewFromInt(1)}
		assert.ErrorIs(t, f.stack.Products.CreateProduct(ctx, dup, actor), ErrDuplicateCode)
	})

	t.Run("duplicate barcode", func(t *testing.T) {
		code := "8991"
		first := &model.Product{Code: "B-1", Name: "A", Price: decimal.NewFromInt(1), Barcode: &code}
		require.NoError(t, f.stack.Products.CreateProduct(ctx, first, actor))
		second := &model.Product{Code: "B-2", Name: "B", Price: decimal.NewFromInt(1), Barcode: &code}
		assert.ErrorIs(t, f.stack.Products.CreateProduct(ctx, second, actor), ErrDuplicateBarcode)
	})

	t.Run("validation", func(t *testing.T) {
		bad := &model.Product{Code: "NEG", Name: "Negative", Price: decimal.NewFromInt(-1)}
		err := f.stack.Products.CreateProduct(ctx, bad, actor)
		var verr *validator.Error
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "decimal_gte0", verr.Fields[0].Tag)

		missing := &model.Product{Name: "No code"}
		assert.ErrorAs(t, f.stack.Products.CreateProduct(ctx, missing, actor), &verr)
	})
}

func TestProductService_UpdateDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.product(t, "A", 5, "2.00")
	f.product(t, "B", 5, "2.00")
	f.feed.reset()

	updated, err := f.stack.Products.UpdateProduct(ctx, p.ID, &model.Product{
		Code: "A", Name: "Renamed", Stock: 9, Price: decimal.NewFromInt(3), Category: "misc",
	}, Actor{})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, 5, updated.Stock)
	assert.Equal(t, 5, f.stock(t, p.ID))
	assert.Len(t, f.feed.byTable(ws.TableProducts), 1)

	// An edit based on a stale read does not bring back sold units.
	_, err = f.stack.Products.AdjustStock(ctx, p.ID, -2, Actor{})
	require.NoError(t, err)
	updated, err = f.stack.Products.UpdateProduct(ctx, p.ID, &model.Product{
		Code: "A", Name: "Renamed again", Stock: 5, Price: decimal.NewFromInt(3), Category: "misc",
	}, Actor{})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Stock)
	assert.Equal(t, 3, f.stock(t, p.ID))
	f.feed.reset()

	_, err = f.stack.Products.UpdateProduct(ctx, p.ID, &model.Product{Code: "B", Name: "Clash", Price: decimal.Zero}, Actor{})
	assert.ErrorIs(t, err, ErrDuplicateCode)

	_, err = f.stack.Products.UpdateProduct(ctx, uuid.New(), &model.Product{Code: "Z", Name: "Z"}, Actor{})
	assert.ErrorIs(t, err, ErrProductNotFound)

	require.NoError(t, f.stack.Products.DeleteProduct(ctx, p.ID, Actor{}))
	_, err = f.stack.Products.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, f.stack.Products.DeleteProduct(ctx, p.ID, Actor{}), ErrProductNotFound)

	deletes := f.feed.byTable(ws.TableProducts)
	assert.Equal(t, ws.ActionDelete, deletes[len(deletes)-1].Action)
}

func TestProductService_SearchBlankSkipsRepository(t *testing.T) {
	spy := &searchSpy{}
	svc := NewProductService("", spy, nil, &recorder{}, 5)

	for _, term := range []string{"", "   ", "\t\n"} {
		found, err := svc.SearchProducts(context.Background(), term, 0)
		require.NoError(t, err)
		assert.NotNil(t, found)
		assert.Empty(t, found)
	}
	assert.Zero(t, spy.calls)

	_, err := svc.SearchProducts(context.Background(), " milk ", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, spy.calls)
}

func TestProductService_Search(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.product(t, "MLK-1", 3, "1")
	f.product(t, "BRD-1", 3, "1")

	found, err := f.stack.Products.SearchProducts(ctx, "  mlk ", 0)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "MLK-1", found[0].Code)
}

func TestProductService_CheckStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "A", 4, "1")

	ok, err := f.stack.Products.CheckStock(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.stack.Products.CheckStock(ctx, p.ID, 5)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.stack.Products.CheckStock(ctx, p.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.stack.Products.CheckStock(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.Equal(t, 4, f.stock(t, p.ID))
}

func TestProductService_AdjustStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.product(t, "A", 4, "1")

	adjusted, err := f.stack.Products.AdjustStock(ctx, p.ID, 6, Actor{})
	require.NoError(t, err)
	assert.Equal(t, 10, adjusted.Stock)

	adjusted, err = f.stack.Products.AdjustStock(ctx, p.ID, -3, Actor{})
	require.NoError(t, err)
	assert.Equal(t, 7, adjusted.Stock)
	assert.Equal(t, 7, f.stock(t, p.ID))

	_, err = f.stack.Products.AdjustStock(ctx, p.ID, -8, Actor{})
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 7, stockErr.Shortages[0].Available)
	assert.Equal(t, 7, f.stock(t, p.ID))

	_, err = f.stack.Products.AdjustStock(ctx, p.ID, 0, Actor{})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = f.stack.Products.AdjustStock(ctx, uuid.New(), 1, Actor{})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestProductService_CategoriesAndLowStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty, err := f.stack.Products.Categories(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)

	low := &model.Product{Code: "L", Name: "Low", Stock: 2, Category: "dairy", Price: decimal.NewFromInt(1)}
	require.NoError(t, f.stack.Products.CreateProduct(ctx, low, Actor{}))
	f.product(t, "H", 50, "1")

	categories, err := f.stack.Products.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dairy"}, categories)

	lows, err := f.stack.Products.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, lows, 1)
	assert.Equal(t, "L", lows[0].Code)
}
