package service

import (
	"errors"
	"fmt"
	"strings"

	"go-pos-ws/internal/ws"

	"github.com/google/uuid"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrDuplicateCode    = errors.New("product code already exists")
	ErrDuplicateBarcode = errors.New("barcode already exists")
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")

	ErrSaleNotFound         = errors.New("sale not found")
	ErrSaleAlreadyCancelled = errors.New("sale is already cancelled")

	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrWrongPassword      = errors.New("current password is incorrect")
	ErrSessionTimeout     = errors.New("session expired due to inactivity")
	ErrSessionReplaced    = errors.New("session expired (logged in on another device)")
	ErrEmailExists        = errors.New("email already exists")
	ErrRoleNotFound       = errors.New("role not found")
	ErrSignupDisabled     = errors.New("sign-up is disabled")
	ErrSelfDeactivation   = errors.New("you cannot deactivate your own account")
	ErrSelfDeletion       = errors.New("you cannot delete your own account")

	ErrTenantNotFound    = errors.New("tenant not found")
	ErrDuplicateSlug     = errors.New("tenant slug already exists")
	ErrTenantInactive    = errors.New("tenant is inactive")
	ErrNotTenantMember   = errors.New("user is not a member of this tenant")
	ErrAlreadyMember     = errors.New("user is already a member of this tenant")
	ErrMemberNotFound    = errors.New("membership not found")
	ErrTenantUnavailable = errors.New("tenant database unavailable")
	ErrTenantRequired    = errors.New("select a tenant first")
)

// Shortage describes one product that cannot cover a requested quantity.
type Shortage struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
}

// InsufficientStockError lists every product that blocked a stock change.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, len(e.Shortages))
	for i, s := range e.Shortages {
		name := s.ProductName
		if name == "" {
			name = s.ProductID.String()
		}
		parts[i] = fmt.Sprintf("%s (requested %d, available %d)", name, s.Requested, s.Available)
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

// Actor is the authenticated user performing an operation.
type Actor struct {
	ID    uuid.UUID
	Name  string
	Email string
}

// String is the value written to audit columns.
func (a Actor) String() string {
	if a.ID == uuid.Nil {
		return "system"
	}
	return a.ID.String()
}

func (a Actor) wsActor() *ws.Actor {
	if a.ID == uuid.Nil {
		return nil
	}
	return &ws.Actor{ID: a.ID.String(), Name: a.Name, Email: a.Email}
}

// Publisher is the change feed seen by services. *ws.Hub implements it.
type Publisher interface {
	Publish(e ws.Event)
}
