package model

import (
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// User is the profile row behind an email/password account. Users live in
// the control database and reach tenant data through tenant_users.
type User struct {
	BaseModel
	Email       string      `gorm:"type:varchar(255);uniqueIndex;not null" json:"email" validate:"required,email"`
	Password    string      `gorm:"type:varchar(255);not null" json:"-"`
	FullName    string      `gorm:"type:varchar(255)" json:"full_name" validate:"required"`
	PhoneNumber string      `gorm:"type:varchar(20)" json:"phone_number"`
	RoleID      *uint       `gorm:"index" json:"role_id"`
	Role        *Role       `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	IsActive    bool        `gorm:"default:true" json:"is_active"`
	Privileges  []Privilege `gorm:"many2many:user_privileges;" json:"privileges,omitempty"`
	// TokenVersion changes on every login, logout and password reset; tokens
	// carrying an older value are refused.
	TokenVersion string     `gorm:"type:varchar(255);default:''" json:"-"`
	LastSeenAt   *time.Time `json:"last_seen_at,omitempty"`
}

func (u *User) SetPassword(password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hash)
	return nil
}

func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)) == nil
}

func (u *User) HasPrivilege(code string) bool {
	for _, p := range u.Privileges {
		if p.Code == code {
			return true
		}
	}
	return false
}

// GetPrivilegeCodes flattens the loaded privileges to their codes.
func (u *User) GetPrivilegeCodes() []string {
	codes := make([]string, 0, len(u.Privileges))
	for _, p := range u.Privileges {
		codes = append(codes, p.Code)
	}
	return codes
}

// RoleCode returns the code of the loaded role, or "" when none is attached.
func (u *User) RoleCode() string {
	if u.Role == nil {
		return ""
	}
	return u.Role.Code
}

// Profile is the public view of a user: what the register and the user
// admin screens show.
type Profile struct {
	ID         uuid.UUID  `json:"id"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone,omitempty"`
	RoleID     *uint      `json:"role_id,omitempty"`
	Role       string     `json:"role"`
	Active     bool       `json:"active"`
	LastSeenAt *time.Time `json:"last_seen_at,omitempty"`
	Privileges []string   `json:"privileges"`
}

func (u *User) Profile() Profile {
	return Profile{
		ID:         u.ID,
		Name:       u.FullName,
		Email:      u.Email,
		Phone:      u.PhoneNumber,
		RoleID:     u.RoleID,
		Role:       u.RoleCode(),
		Active:     u.IsActive,
		LastSeenAt: u.LastSeenAt,
		Privileges: u.GetPrivilegeCodes(),
	}
}
