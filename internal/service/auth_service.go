package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/ws"
	"go-pos-ws/pkg/jwt"
	"go-pos-ws/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AuthService interface {
	Signup(ctx context.Context, req *SignupRequest) (*LoginResponse, error)
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	Session(ctx context.Context, token string) (*SessionResponse, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ResetPassword(ctx context.Context, email, oldPassword, newPassword string) error
	ValidateToken(ctx context.Context, token string) (*SessionResponse, error)
	Authenticate(ctx context.Context, token string) (*model.User, *jwt.Claims, error)
	Heartbeat(ctx context.Context, userID uuid.UUID) error
	SelectTenant(ctx context.Context, userID, tenantID uuid.UUID) (*LoginResponse, error)
}

type SignupRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6"`
	FullName    string `json:"full_name" validate:"required"`
	PhoneNumber string `json:"phone_number" validate:"max=20"`
}

type LoginResponse struct {
	Token      string        `json:"token"`
	ExpiresAt  time.Time     `json:"expires_at"`
	User       model.Profile `json:"user"`
	Role       *model.Role   `json:"role"`       // Direct role object for Redux
	Privileges []string      `json:"privileges"` // Flat privileges array for easy checking
	Tenant     *model.Tenant `json:"tenant,omitempty"`
}

// SessionResponse describes the session behind a token.
type SessionResponse struct {
	User       model.Profile  `json:"user"`
	Role       *model.Role    `json:"role"`
	Privileges []string       `json:"privileges"`
	TenantID   string         `json:"tenant_id,omitempty"`
	Tenants    []model.Tenant `json:"tenants"`
	ExpiresAt  *time.Time     `json:"expires_at,omitempty"`
}

// AuthOptions tunes session behavior.
type AuthOptions struct {
	AllowSignup bool
	// IdleTimeout ends sessions whose last heartbeat is older; 0 disables it.
	IdleTimeout time.Duration
}

type authService struct {
	userRepo   repository.UserRepository
	roleRepo   repository.RoleRepository
	tenantRepo repository.TenantRepository
	tokens     *jwt.Manager
	feed       Publisher
	opts       AuthOptions
	now        func() time.Time
}

func NewAuthService(userRepo repository.UserRepository, roleRepo repository.RoleRepository, tenantRepo repository.TenantRepository,
	tokens *jwt.Manager, feed Publisher, opts AuthOptions) AuthService {
	return &authService{
		userRepo:   userRepo,
		roleRepo:   roleRepo,
		tenantRepo: tenantRepo,
		tokens:     tokens,
		feed:       feed,
		opts:       opts,
		now:        time.Now,
	}
}

func (s *authService) Signup(ctx context.Context, req *SignupRequest) (*LoginResponse, error) {
	if !s.opts.AllowSignup {
		return nil, ErrSignupDisabled
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validator.Check(req); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	role, err := s.roleRepo.FindByCode(ctx, model.RoleCashier)
	if err != nil {
		return nil, ErrRoleNotFound
	}

	user := &model.User{
		Email:       req.Email,
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		RoleID:      &role.ID,
		IsActive:    true,
		Privileges:  role.Privileges,
	}
	user.Stamp("signup")
	if err := user.SetPassword(req.Password); err != nil {
		return nil, errors.New("failed to hash password")
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	created, err := s.userRepo.FindByID(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.startSession(ctx, created)
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}
	return s.startSession(ctx, user)
}

// startSession rotates the token version, so older sessions of the user end,
// and issues a token for the user's default tenant.
func (s *authService) startSession(ctx context.Context, user *model.User) (*LoginResponse, error) {
	tenant, err := s.defaultTenant(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	version := uuid.New().String()
	if err := s.userRepo.UpdateTokenVersion(ctx, user.ID, version); err != nil {
		return nil, errors.New("failed to update session")
	}
	if err := s.userRepo.UpdateLastSeen(ctx, user.ID); err != nil {
		return nil, errors.New("failed to update session")
	}
	user.TokenVersion = version
	return s.issue(user, tenant)
}

func (s *authService) defaultTenant(ctx context.Context, userID uuid.UUID) (*model.Tenant, error) {
	memberships, err := s.tenantRepo.FindMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	bound := false
	for _, m := range memberships {
		if m.Tenant == nil {
			continue
		}
		if m.Tenant.IsActive {
			return m.Tenant, nil
		}
		bound = true
	}
	// Only users outside every tenant work on the default store.
	if bound {
		return nil, ErrTenantInactive
	}
	return nil, nil
}

func (s *authService) issue(user *model.User, tenant *model.Tenant) (*LoginResponse, error) {
	subject := jwt.Subject{
		UserID:       user.ID,
		Email:        user.Email,
		Name:         user.FullName,
		RoleCode:     user.RoleCode(),
		Privileges:   user.GetPrivilegeCodes(),
		TokenVersion: user.TokenVersion,
	}
	if tenant != nil {
		subject.TenantID = tenant.ID.String()
	}

	token, err := s.tokens.GenerateToken(subject)
	if err != nil {
		return nil, errors.New("failed to generate token")
	}

	return &LoginResponse{
		Token:      token,
		ExpiresAt:  s.now().Add(s.tokens.TTL()),
		User:       user.Profile(),
		Role:       user.Role,
		Privileges: user.GetPrivilegeCodes(),
		Tenant:     tenant,
	}, nil
}

// Authenticate resolves a bearer token to its user. It rejects inactive
// users, tokens from a replaced session and idle sessions.
func (s *authService) Authenticate(ctx context.Context, token string) (*model.User, *jwt.Claims, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return nil, nil, err
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, nil, ErrUserInactive
	}
	if user.TokenVersion != claims.TokenVersion {
		return nil, nil, ErrSessionReplaced
	}
	if s.opts.IdleTimeout > 0 && user.LastSeenAt != nil && s.now().Sub(*user.LastSeenAt) > s.opts.IdleTimeout {
		return nil, nil, ErrSessionTimeout
	}
	return user, claims, nil
}

func (s *authService) Session(ctx context.Context, token string) (*SessionResponse, error) {
	user, claims, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	memberships, err := s.tenantRepo.FindMembershipsByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	tenants := make([]model.Tenant, 0, len(memberships))
	for _, m := range memberships {
		if m.Tenant != nil {
			tenants = append(tenants, *m.Tenant)
		}
	}

	resp := &SessionResponse{
		User:       user.Profile(),
		Role:       user.Role,
		Privileges: user.GetPrivilegeCodes(),
		TenantID:   claims.TenantID,
		Tenants:    tenants,
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		resp.ExpiresAt = &exp
	}
	return resp, nil
}

func (s *authService) ValidateToken(ctx context.Context, token string) (*SessionResponse, error) {
	user, claims, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return &SessionResponse{
		User:       user.Profile(),
		Role:       user.Role,
		Privileges: user.GetPrivilegeCodes(),
		TenantID:   claims.TenantID,
		Tenants:    []model.Tenant{},
	}, nil
}

// Logout ends every session of the user by rotating its token version.
func (s *authService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.UpdateTokenVersion(ctx, userID, uuid.New().String()); err != nil {
		return err
	}
	s.publishPresence(userID, "offline")
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, email, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return &validator.Error{Fields: []*validator.ErrorResponse{{FailedField: "new_password", Tag: "min", Value: "6"}}}
	}

	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return ErrUserNotFound
	}
	if !user.CheckPassword(oldPassword) {
		return ErrWrongPassword
	}
	if err := user.SetPassword(newPassword); err != nil {
		return errors.New("failed to hash new password")
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		return err
	}
	// Sessions opened with the old password end here.
	return s.userRepo.UpdateTokenVersion(ctx, user.ID, uuid.New().String())
}

func (s *authService) Heartbeat(ctx context.Context, userID uuid.UUID) error {
	if err := s.userRepo.UpdateLastSeen(ctx, userID); err != nil {
		return err
	}
	s.publishPresence(userID, "online")
	return nil
}

func (s *authService) publishPresence(userID uuid.UUID, status string) {
	s.feed.Publish(ws.Event{
		Type:    ws.EventUserStatus,
		Actor:   &ws.Actor{ID: userID.String()},
		Message: status,
	})
}

// SelectTenant re-issues the caller's token for another tenant it belongs to.
func (s *authService) SelectTenant(ctx context.Context, userID, tenantID uuid.UUID) (*LoginResponse, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	membership, err := s.tenantRepo.FindMembership(ctx, tenantID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotTenantMember
		}
		return nil, err
	}
	if membership.Tenant == nil {
		return nil, ErrTenantNotFound
	}
	if !membership.Tenant.IsActive {
		return nil, ErrTenantInactive
	}
	return s.issue(user, membership.Tenant)
}
