package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TenantService interface {
	CreateTenant(ctx context.Context, req *TenantRequest, actor Actor) (*model.Tenant, error)
	UpdateTenant(ctx context.Context, id uuid.UUID, req *TenantRequest, actor Actor) (*model.Tenant, error)
	DeleteTenant(ctx context.Context, id uuid.UUID, actor Actor) error
	GetTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	ListTenants(ctx context.Context) ([]model.Tenant, error)
	MyTenants(ctx context.Context, userID uuid.UUID) ([]model.TenantUser, error)
	AddMember(ctx context.Context, tenantID uuid.UUID, req *MemberRequest, actor Actor) (*model.TenantUser, error)
	RemoveMember(ctx context.Context, tenantID, userID uuid.UUID) error
	Members(ctx context.Context, tenantID uuid.UUID) ([]model.TenantUser, error)
}

type TenantRequest struct {
	Name string `json:"name" validate:"required,max=255"`
	Slug string `json:"slug" validate:"required,max=100,slug"`
	// DatabaseURL is write-only; a nil value keeps the stored URL on update.
	DatabaseURL *string `json:"database_url"`
	IsActive    *bool   `json:"is_active"`
}

type MemberRequest struct {
	UserID    uuid.UUID `json:"user_id" validate:"uuid_required"`
	IsDefault bool      `json:"is_default"`
}

// Evictor drops cached per-tenant resources. The tenant registry
// implements it.
type Evictor interface {
	Evict(tenantID string)
}

type tenantService struct {
	tenantRepo repository.TenantRepository
	userRepo   repository.UserRepository
	evictor    Evictor
}

func NewTenantService(tenantRepo repository.TenantRepository, userRepo repository.UserRepository, evictor Evictor) TenantService {
	return &tenantService{
		tenantRepo: tenantRepo,
		userRepo:   userRepo,
		evictor:    evictor,
	}
}

func (s *tenantService) slugTaken(ctx context.Context, slug string, self uuid.UUID) error {
	existing, err := s.tenantRepo.FindBySlug(ctx, slug)
	if err == nil && existing.ID != self {
		return ErrDuplicateSlug
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return nil
}

func (s *tenantService) CreateTenant(ctx context.Context, req *TenantRequest, actor Actor) (*model.Tenant, error) {
	req.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	if err := s.slugTaken(ctx, req.Slug, uuid.Nil); err != nil {
		return nil, err
	}

	tenant := &model.Tenant{
		Name:     req.Name,
		Slug:     req.Slug,
		IsActive: true,
	}
	if req.DatabaseURL != nil {
		tenant.DatabaseURL = strings.TrimSpace(*req.DatabaseURL)
	}
	tenant.Stamp(actor.String())

	if err := s.tenantRepo.Create(ctx, tenant); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateSlug
		}
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	// Gorm skips zero-valued fields that carry a default.
	if req.IsActive != nil && !*req.IsActive {
		tenant.IsActive = false
		if err := s.tenantRepo.Update(ctx, tenant); err != nil {
			return nil, err
		}
	}
	return tenant, nil
}

func (s *tenantService) UpdateTenant(ctx context.Context, id uuid.UUID, req *TenantRequest, actor Actor) (*model.Tenant, error) {
	tenant, err := s.GetTenant(ctx, id)
	if err != nil {
		return nil, err
	}

	req.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	if err := s.slugTaken(ctx, req.Slug, id); err != nil {
		return nil, err
	}

	tenant.Name = req.Name
	tenant.Slug = req.Slug
	if req.DatabaseURL != nil {
		tenant.DatabaseURL = strings.TrimSpace(*req.DatabaseURL)
	}
	if req.IsActive != nil {
		tenant.IsActive = *req.IsActive
	}
	tenant.UpdatedBy = actor.String()

	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateSlug
		}
		return nil, fmt.Errorf("update tenant: %w", err)
	}

	s.evictor.Evict(id.String())
	return tenant, nil
}

func (s *tenantService) DeleteTenant(ctx context.Context, id uuid.UUID, actor Actor) error {
	if err := s.tenantRepo.Delete(ctx, id, actor.String()); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTenantNotFound
		}
		return err
	}
	s.evictor.Evict(id.String())
	return nil
}

func (s *tenantService) GetTenant(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	return tenant, nil
}

func (s *tenantService) ListTenants(ctx context.Context) ([]model.Tenant, error) {
	return s.tenantRepo.FindAll(ctx)
}

func (s *tenantService) MyTenants(ctx context.Context, userID uuid.UUID) ([]model.TenantUser, error) {
	return s.tenantRepo.FindMembershipsByUser(ctx, userID)
}

func (s *tenantService) AddMember(ctx context.Context, tenantID uuid.UUID, req *MemberRequest, actor Actor) (*model.TenantUser, error) {
	if err := validator.Check(req); err != nil {
		return nil, err
	}
	if _, err := s.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	if _, err := s.userRepo.FindByID(ctx, req.UserID); err != nil {
		return nil, ErrUserNotFound
	}

	if _, err := s.tenantRepo.FindMembership(ctx, tenantID, req.UserID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	member := &model.TenantUser{TenantID: tenantID, UserID: req.UserID, IsDefault: req.IsDefault}
	member.Stamp(actor.String())
	if err := s.tenantRepo.AddMember(ctx, member); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("add member: %w", err)
	}
	return member, nil
}

func (s *tenantService) RemoveMember(ctx context.Context, tenantID, userID uuid.UUID) error {
	if err := s.tenantRepo.RemoveMember(ctx, tenantID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return err
	}
	return nil
}

func (s *tenantService) Members(ctx context.Context, tenantID uuid.UUID) ([]model.TenantUser, error) {
	if _, err := s.GetTenant(ctx, tenantID); err != nil {
		return nil, err
	}
	return s.tenantRepo.FindMembers(ctx, tenantID)
}
