package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go-pos-ws/internal/cache"
	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/testutil"
	"go-pos-ws/internal/ws"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recorder struct {
	mu     sync.Mutex
	events []ws.Event
}

func (r *recorder) Publish(e ws.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) byTable(table string) []ws.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ws.Event
	for _, e := range r.events {
		if e.Table == table {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type fixture struct {
	db    *gorm.DB
	feed  *recorder
	stack *Stack
	cache *cache.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	feed := &recorder{}
	mem := cache.NewMemory()
	stack := NewStack("", db, StackDeps{
		Feed:              feed,
		Cache:             mem,
		CacheTTL:          time.Minute,
		LowStockThreshold: 5,
		Logger:            zap.NewNop(),
	})
	return &fixture{db: db, feed: feed, stack: stack, cache: mem}
}

func (f *fixture) product(t *testing.T, code string, stock int, price string) *model.Product {
	t.Helper()
	p := &model.Product{
		Code:  code,
		Name:  "Product " + code,
		Stock: stock,
		Price: decimal.RequireFromString(price),
	}
	require.NoError(t, f.stack.Products.CreateProduct(context.Background(), p, Actor{}))
	return p
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := f.stack.Products.GetProduct(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func (f *fixture) count(t *testing.T, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(m).Count(&n).Error)
	return n
}

func seeded(t *testing.T, db *gorm.DB) (repository.UserRepository, repository.RoleRepository, repository.PrivilegeRepository) {
	t.Helper()
	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)
	privs := repository.NewPrivilegeRepo(db)
	require.NoError(t, Seed(context.Background(), privs, roles, users, SeedOptions{
		AdminEmail:    "admin@example.com",
		AdminPassword: "admin123",
	}, zap.NewNop()))
	return users, roles, privs
}
