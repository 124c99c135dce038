package model

// Role represents user roles in the system
type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Code        string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name        string      `gorm:"type:varchar(100)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Privileges  []Privilege `gorm:"many2many:role_privileges;" json:"privileges,omitempty"`
}

const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleCashier = "CASHIER"
)

// DefaultRoles defines the default roles in the system
var DefaultRoles = []Role{
	{
		Code:        RoleAdmin,
		Name:        "Administrator",
		Description: "Full system access with all privileges",
	},
	{
		Code:        RoleManager,
		Name:        "Store Manager",
		Description: "Catalog, sales and reports; no user or tenant management",
	},
	{
		Code:        RoleCashier,
		Name:        "Cashier",
		Description: "Register sales and browse the catalog",
	},
}

// RolePrivilegeCodes returns the privilege codes granted to a role by default.
// ADMIN is absent: it receives every privilege.
var RolePrivilegeCodes = map[string][]string{
	RoleManager: {
		PrivUserView, PrivProductView, PrivProductCreate, PrivProductUpdate, PrivProductDelete,
		PrivStockAdjust, PrivSaleView, PrivSaleCreate, PrivSaleCancel, PrivReportView, PrivTenantView,
	},
	RoleCashier: {
		PrivProductView, PrivSaleView, PrivSaleCreate, PrivTenantView,
	},
}
