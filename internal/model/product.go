package model

import "github.com/shopspring/decimal"

// Product is a catalog entry of a tenant.
type Product struct {
	BaseModel
	Code     string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"code" validate:"required,max=50"`
	Name     string          `gorm:"type:varchar(255);not null;index" json:"name" validate:"required,max=255"`
	Barcode  *string         `gorm:"type:varchar(64);uniqueIndex" json:"barcode,omitempty" validate:"omitempty,max=64"`
	Price    decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0" json:"price" validate:"decimal_gte0"`
	Stock    int             `gorm:"not null;default:0" json:"stock" validate:"gte=0"`
	MinStock int             `gorm:"not null;default:0" json:"min_stock" validate:"gte=0"`
	Category string          `gorm:"type:varchar(100);index" json:"category" validate:"max=100"`
}

// IsLowStock reports whether the product sits at or below its reorder point.
// threshold is used when the product carries no explicit MinStock.
func (p *Product) IsLowStock(threshold int) bool {
	limit := p.MinStock
	if limit == 0 {
		limit = threshold
	}
	return p.Stock <= limit
}
