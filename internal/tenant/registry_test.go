package tenant

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-pos-ws/internal/cache"
	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/service"
	"go-pos-ws/internal/testutil"
	"go-pos-ws/internal/ws"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type nopFeed struct{}

func (nopFeed) Publish(ws.Event) {}

type fakeDBs struct {
	opened []string
	closed int
	fail   bool
}

func (f *fakeDBs) open(dsn string) (*gorm.DB, error) {
	if f.fail {
		return nil, errors.New("connection refused")
	}
	f.opened = append(f.opened, dsn)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, err
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func (f *fakeDBs) close(db *gorm.DB) error {
	f.closed++
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newRegistry(t *testing.T, dbs *fakeDBs) (*Registry, repository.TenantRepository) {
	t.Helper()
	primary := testutil.NewDB(t)
	tenants := repository.NewTenantRepo(primary)
	reg := NewRegistry(primary, tenants, dbs.open, dbs.close, service.StackDeps{
		Feed:              nopFeed{},
		Cache:             cache.NewMemory(),
		CacheTTL:          time.Minute,
		LowStockThreshold: 5,
		Logger:            zap.NewNop(),
	}, zap.NewNop())
	t.Cleanup(reg.Close)
	return reg, tenants
}

func TestRegistry_DefaultTenant(t *testing.T) {
	reg, _ := newRegistry(t, &fakeDBs{})

	stack, err := reg.Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Same(t, reg.Default(), stack)
	assert.Empty(t, stack.TenantID)
	assert.Zero(t, reg.Len())
}

func TestRegistry_SharedDatabaseTenant(t *testing.T) {
	dbs := &fakeDBs{}
	reg, tenants := newRegistry(t, dbs)
	ctx := context.Background()

	tn := &model.Tenant{Name: "Shared", Slug: "shared", IsActive: true}
	require.NoError(t, tenants.Create(ctx, tn))

	stack, err := reg.Resolve(ctx, tn.ID.String())
	require.NoError(t, err)
	assert.Same(t, reg.Default(), stack)
	assert.Empty(t, stack.TenantID)
	assert.Empty(t, dbs.opened)
	assert.Equal(t, 1, reg.Len())

	again, err := reg.Resolve(ctx, tn.ID.String())
	require.NoError(t, err)
	assert.Same(t, stack, again)
}

func TestRegistry_SharedDatabaseInvalidatesDefaultReports(t *testing.T) {
	ctx := context.Background()
	primary := testutil.NewDB(t)
	tenants := repository.NewTenantRepo(primary)

	hub := ws.NewHub(zap.NewNop(), 64)
	mem := cache.NewMemory()
	service.InvalidateReportsOnChange(hub, mem, zap.NewNop())

	reg := NewRegistry(primary, tenants, (&fakeDBs{}).open, nil, service.StackDeps{
		Feed:              hub,
		Cache:             mem,
		CacheTTL:          time.Hour,
		LowStockThreshold: 5,
		Logger:            zap.NewNop(),
	}, zap.NewNop())

	tn := &model.Tenant{Name: "Shared", Slug: "shared", IsActive: true}
	require.NoError(t, tenants.Create(ctx, tn))
	p := &model.Product{Code: "P-1", Name: "Tea", Price: decimal.RequireFromString("3"), Stock: 10}
	require.NoError(t, primary.Create(p).Error)

	before, err := reg.Default().Reports.Dashboard(ctx)
	require.NoError(t, err)
	assert.Zero(t, before.SalesToday)

	shared, err := reg.Resolve(ctx, tn.ID.String())
	require.NoError(t, err)
	_, err = shared.Sales.CreateSale(ctx, &service.CreateSaleRequest{
		Items:         []service.SaleLine{{ProductID: p.ID, Quantity: 1}},
		PaymentMethod: model.PaymentCash,
	}, service.Actor{})
	require.NoError(t, err)

	after, err := reg.Default().Reports.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), after.SalesToday)
	assert.Equal(t, "3", after.RevenueToday.String())
}

func TestRegistry_DedicatedDatabase(t *testing.T) {
	dbs := &fakeDBs{}
	reg, tenants := newRegistry(t, dbs)
	ctx := context.Background()

	tn := &model.Tenant{Name: "Own DB", Slug: "own-db", DatabaseURL: "postgres://own", IsActive: true}
	require.NoError(t, tenants.Create(ctx, tn))

	stack, err := reg.Resolve(ctx, tn.ID.String())
	require.NoError(t, err)
	assert.Equal(t, []string{"postgres://own"}, dbs.opened)
	assert.NotSame(t, reg.Default().DB, stack.DB)

	// Tenant schema is migrated: the stack works end to end.
	p := &model.Product{Code: "T-1", Name: "Tenant product", Stock: 2, Price: decimal.NewFromInt(1)}
	require.NoError(t, stack.Products.CreateProduct(ctx, p, service.Actor{}))
	_, err = reg.Default().Products.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, service.ErrProductNotFound)

	_, err = reg.Resolve(ctx, tn.ID.String())
	require.NoError(t, err)
	assert.Len(t, dbs.opened, 1)

	reg.Evict(tn.ID.String())
	assert.Equal(t, 1, dbs.closed)
	assert.Zero(t, reg.Len())

	_, err = reg.Resolve(ctx, tn.ID.String())
	require.NoError(t, err)
	assert.Len(t, dbs.opened, 2)
}

func TestRegistry_Errors(t *testing.T) {
	dbs := &fakeDBs{}
	reg, tenants := newRegistry(t, dbs)
	ctx := context.Background()

	_, err := reg.Resolve(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, service.ErrTenantNotFound)

	_, err = reg.Resolve(ctx, uuid.NewString())
	assert.ErrorIs(t, err, service.ErrTenantNotFound)

	off := &model.Tenant{Name: "Off", Slug: "off", IsActive: true}
	require.NoError(t, tenants.Create(ctx, off))
	off.IsActive = false
	require.NoError(t, tenants.Update(ctx, off))
	_, err = reg.Resolve(ctx, off.ID.String())
	assert.ErrorIs(t, err, service.ErrTenantInactive)

	dbs.fail = true
	broken := &model.Tenant{Name: "Broken", Slug: "broken", DatabaseURL: "postgres://down", IsActive: true}
	require.NoError(t, tenants.Create(ctx, broken))
	_, err = reg.Resolve(ctx, broken.ID.String())
	assert.ErrorIs(t, err, service.ErrTenantUnavailable)
	assert.Zero(t, reg.Len())
}
