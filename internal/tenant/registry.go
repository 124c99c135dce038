// Package tenant resolves a tenant id to the database and services that
// serve it. Stacks are built on first use and cached until evicted.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Opener connects to a tenant's dedicated database.
type Opener func(dsn string) (*gorm.DB, error)

// Closer releases a database opened by an Opener.
type Closer func(db *gorm.DB) error

type entry struct {
	stack     *service.Stack
	dedicated bool
}

type Registry struct {
	primary    *gorm.DB
	tenantRepo repository.TenantRepository
	open       Opener
	close      Closer
	deps       service.StackDeps
	log        *zap.Logger

	defaultStack *service.Stack

	mu      sync.RWMutex
	entries map[string]*entry
	// opening serializes stack construction per tenant.
	opening sync.Mutex
}

func NewRegistry(primary *gorm.DB, tenantRepo repository.TenantRepository, open Opener, closeFn Closer, deps service.StackDeps, log *zap.Logger) *Registry {
	return &Registry{
		primary:      primary,
		tenantRepo:   tenantRepo,
		open:         open,
		close:        closeFn,
		deps:         deps,
		log:          log.Named("tenant"),
		defaultStack: service.NewStack("", primary, deps),
		entries:      make(map[string]*entry),
	}
}

// Default is the stack of the primary database, used by sessions without a
// tenant.
func (r *Registry) Default() *service.Stack {
	return r.defaultStack
}

// Resolve returns the stack for tenantID. An empty id is the default tenant.
func (r *Registry) Resolve(ctx context.Context, tenantID string) (*service.Stack, error) {
	if tenantID == "" {
		return r.defaultStack, nil
	}

	r.mu.RLock()
	e, ok := r.entries[tenantID]
	r.mu.RUnlock()
	if ok {
		return e.stack, nil
	}

	r.opening.Lock()
	defer r.opening.Unlock()

	r.mu.RLock()
	e, ok = r.entries[tenantID]
	r.mu.RUnlock()
	if ok {
		return e.stack, nil
	}

	id, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, service.ErrTenantNotFound
	}
	t, err := r.tenantRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, service.ErrTenantNotFound
		}
		return nil, err
	}
	if !t.IsActive {
		return nil, service.ErrTenantInactive
	}

	e, err = r.build(t)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.entries[tenantID] = e
	r.mu.Unlock()
	return e.stack, nil
}

func (r *Registry) build(t *model.Tenant) (*entry, error) {
	// A tenant without its own database reads and writes the primary tables,
	// so it shares the default stack and with it the default feed and cache keys.
	if !t.HasDedicatedDatabase() {
		return &entry{stack: r.defaultStack}, nil
	}

	db, err := r.open(t.DatabaseURL)
	if err != nil {
		r.log.Error("open tenant database", zap.String("tenant_id", t.ID.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", service.ErrTenantUnavailable, err)
	}
	if err := db.AutoMigrate(model.TenantModels()...); err != nil {
		r.closeDB(t.ID.String(), db)
		return nil, fmt.Errorf("%w: migrate: %v", service.ErrTenantUnavailable, err)
	}

	r.log.Info("tenant database ready", zap.String("tenant_id", t.ID.String()), zap.String("slug", t.Slug))
	return &entry{stack: service.NewStack(t.ID.String(), db, r.deps), dedicated: true}, nil
}

// Evict drops the cached stack of tenantID and closes its dedicated
// connection, if any. The next Resolve rebuilds it.
func (r *Registry) Evict(tenantID string) {
	r.mu.Lock()
	e, ok := r.entries[tenantID]
	delete(r.entries, tenantID)
	r.mu.Unlock()

	if ok && e.dedicated {
		r.closeDB(tenantID, e.stack.DB)
	}
}

// Len reports how many tenant stacks are cached.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Close releases every dedicated tenant connection.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for id, e := range entries {
		if e.dedicated {
			r.closeDB(id, e.stack.DB)
		}
	}
}

func (r *Registry) closeDB(tenantID string, db *gorm.DB) {
	if r.close == nil {
		return
	}
	if err := r.close(db); err != nil {
		r.log.Warn("close tenant database", zap.String("tenant_id", tenantID), zap.Error(err))
	}
}
