package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SaleStatus string

const (
	SaleCompleted SaleStatus = "completed"
	SaleCancelled SaleStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentEWallet  PaymentMethod = "ewallet"
)

// Sale is the header row of a finalized checkout.
type Sale struct {
	BaseModel
	Date          time.Time       `gorm:"column:sale_date;not null;index" json:"date"`
	Total         decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total"`
	ItemCount     int             `gorm:"not null" json:"item_count"`
	Status        SaleStatus      `gorm:"type:varchar(20);not null;index" json:"status"`
	PaymentMethod PaymentMethod   `gorm:"type:varchar(20);not null" json:"payment_method"`
	CustomerName  string          `gorm:"type:varchar(255)" json:"customer_name,omitempty"`
	Note          string          `gorm:"type:text" json:"note,omitempty"`
	CashierID     *uuid.UUID      `gorm:"type:uuid;index" json:"cashier_id,omitempty"`
	Items         []SaleItem      `gorm:"foreignKey:SaleID" json:"items,omitempty"`
}

// SaleItem is one line of a sale. Name and price are snapshots taken at checkout.
type SaleItem struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key;" json:"id"`
	SaleID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"sale_id"`
	ProductID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName string          `gorm:"type:varchar(255)" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"price"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"subtotal"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (i *SaleItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// TenantModels lists the tables that live in a tenant database.
func TenantModels() []interface{} {
	return []interface{}{&Product{}, &Sale{}, &SaleItem{}}
}
