package model

import "github.com/google/uuid"

// Tenant is a customer store with its own product and sales tables.
// An empty DatabaseURL keeps the tenant on the primary database.
type Tenant struct {
	BaseModel
	Name        string `gorm:"type:varchar(255);not null" json:"name" validate:"required,max=255"`
	Slug        string `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug" validate:"required,max=100,slug"`
	DatabaseURL string `gorm:"type:text" json:"-"`
	IsActive    bool   `gorm:"default:true" json:"is_active"`
}

// HasDedicatedDatabase reports whether the tenant lives outside the primary database.
func (t *Tenant) HasDedicatedDatabase() bool {
	return t.DatabaseURL != ""
}

// TenantUser links a user to a tenant it may operate.
type TenantUser struct {
	BaseModel
	TenantID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tenant_user" json:"tenant_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tenant_user;index" json:"user_id"`
	IsDefault bool      `gorm:"default:false" json:"is_default"`
	Tenant    *Tenant   `gorm:"foreignKey:TenantID" json:"tenant,omitempty"`
}

// ControlModels lists the tables that live in the primary database only.
func ControlModels() []interface{} {
	return []interface{}{&User{}, &Privilege{}, &Role{}, &Tenant{}, &TenantUser{}}
}
