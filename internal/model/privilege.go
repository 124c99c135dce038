package model

// Privilege represents a permission that can be assigned to users
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "product:create"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

const (
	PrivUserView      = "user:view"
	PrivUserCreate    = "user:create"
	PrivUserUpdate    = "user:update"
	PrivUserDelete    = "user:delete"
	PrivUserPrivilege = "user:update_privilege"
	PrivProductView   = "product:view"
	PrivProductCreate = "product:create"
	PrivProductUpdate = "product:update"
	PrivProductDelete = "product:delete"
	PrivStockAdjust   = "product:adjust_stock"
	PrivSaleView      = "sale:view"
	PrivSaleCreate    = "sale:create"
	PrivSaleCancel    = "sale:cancel"
	PrivReportView    = "report:view"
	PrivTenantView    = "tenant:view"
	PrivTenantManage  = "tenant:manage"
)

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	{Code: PrivUserView, Name: "View User"},
	{Code: PrivUserCreate, Name: "Create User"},
	{Code: PrivUserUpdate, Name: "Update User"},
	{Code: PrivUserDelete, Name: "Delete User"},
	{Code: PrivUserPrivilege, Name: "Update User Privileges"},
	{Code: PrivProductView, Name: "View Product"},
	{Code: PrivProductCreate, Name: "Create Product"},
	{Code: PrivProductUpdate, Name: "Update Product"},
	{Code: PrivProductDelete, Name: "Delete Product"},
	{Code: PrivStockAdjust, Name: "Adjust Stock"},
	{Code: PrivSaleView, Name: "View Sale"},
	{Code: PrivSaleCreate, Name: "Create Sale"},
	{Code: PrivSaleCancel, Name: "Cancel Sale"},
	{Code: PrivReportView, Name: "View Reports"},
	{Code: PrivTenantView, Name: "View Tenant"},
	{Code: PrivTenantManage, Name: "Manage Tenant"},
}
