package repository

import (
	"context"

	"go-pos-ws/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TenantRepository interface {
	Create(ctx context.Context, tenant *model.Tenant) error
	FindAll(ctx context.Context) ([]model.Tenant, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error)
	FindBySlug(ctx context.Context, slug string) (*model.Tenant, error)
	Update(ctx context.Context, tenant *model.Tenant) error
	Delete(ctx context.Context, id uuid.UUID, deletedBy string) error

	AddMember(ctx context.Context, member *model.TenantUser) error
	RemoveMember(ctx context.Context, tenantID, userID uuid.UUID) error
	FindMembership(ctx context.Context, tenantID, userID uuid.UUID) (*model.TenantUser, error)
	FindMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]model.TenantUser, error)
	FindMembers(ctx context.Context, tenantID uuid.UUID) ([]model.TenantUser, error)
}

type tenantRepo struct {
	db *gorm.DB
}

func NewTenantRepo(db *gorm.DB) TenantRepository {
	return &tenantRepo{db}
}

func (r *tenantRepo) Create(ctx context.Context, tenant *model.Tenant) error {
	return r.db.WithContext(ctx).Create(tenant).Error
}

func (r *tenantRepo) FindAll(ctx context.Context) ([]model.Tenant, error) {
	var tenants []model.Tenant
	err := r.db.WithContext(ctx).Order("name ASC").Find(&tenants).Error
	return tenants, err
}

func (r *tenantRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepo) FindBySlug(ctx context.Context, slug string) (*model.Tenant, error) {
	var tenant model.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, "slug = ?", slug).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *tenantRepo) Update(ctx context.Context, tenant *model.Tenant) error {
	return r.db.WithContext(ctx).Save(tenant).Error
}

// Delete soft-deletes the tenant and drops its memberships.
func (r *tenantRepo) Delete(ctx context.Context, id uuid.UUID, deletedBy string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Tenant{}).Where("id = ?", id).Update("deleted_by", deletedBy)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Unscoped().Where("tenant_id = ?", id).Delete(&model.TenantUser{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Tenant{}, "id = ?", id).Error
	})
}

// AddMember links the user; when the link is the default, other defaults of
// that user are cleared.
func (r *tenantRepo) AddMember(ctx context.Context, member *model.TenantUser) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if member.IsDefault {
			if err := tx.Model(&model.TenantUser{}).
				Where("user_id = ?", member.UserID).
				UpdateColumn("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(member).Error
	})
}

func (r *tenantRepo) RemoveMember(ctx context.Context, tenantID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).Unscoped().
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		Delete(&model.TenantUser{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *tenantRepo) FindMembership(ctx context.Context, tenantID, userID uuid.UUID) (*model.TenantUser, error) {
	var member model.TenantUser
	err := r.db.WithContext(ctx).Preload("Tenant").
		Where("tenant_id = ? AND user_id = ?", tenantID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *tenantRepo) FindMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]model.TenantUser, error) {
	var members []model.TenantUser
	err := r.db.WithContext(ctx).Preload("Tenant").
		Where("user_id = ?", userID).
		Order("is_default DESC, created_at ASC").
		Find(&members).Error
	return members, err
}

func (r *tenantRepo) FindMembers(ctx context.Context, tenantID uuid.UUID) ([]model.TenantUser, error) {
	var members []model.TenantUser
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}
