package service

import (
	"context"
	"errors"
	"fmt"

	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SeedOptions describe the bootstrap administrator.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
}

// Seed creates default privileges and roles, grants each role its default
// privilege set when it has none, and creates the bootstrap admin if
// missing. It is safe to run on every start.
func Seed(ctx context.Context, privilegeRepo repository.PrivilegeRepository, roleRepo repository.RoleRepository,
	userRepo repository.UserRepository, opts SeedOptions, log *zap.Logger) error {
	// 1. Seed privileges first
	if err := privilegeRepo.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed privileges: %w", err)
	}

	// 2. Seed roles
	if err := roleRepo.SeedDefaults(ctx); err != nil {
		return fmt.Errorf("seed roles: %w", err)
	}

	// 3. Assign privileges to roles
	allPrivileges, err := privilegeRepo.FindAll(ctx)
	if err != nil {
		return err
	}
	for _, def := range model.DefaultRoles {
		role, err := roleRepo.FindByCode(ctx, def.Code)
		if err != nil {
			return err
		}
		if len(role.Privileges) > 0 {
			continue
		}

		grant := allPrivileges
		if def.Code != model.RoleAdmin {
			grant, err = privilegeRepo.FindByCodes(ctx, model.RolePrivilegeCodes[def.Code])
			if err != nil {
				return err
			}
		}
		if err := roleRepo.ReplacePrivileges(ctx, role, grant); err != nil {
			return fmt.Errorf("grant %s privileges: %w", def.Code, err)
		}
		log.Info("role privileges granted", zap.String("role", def.Code), zap.Int("count", len(grant)))
	}

	// 4. Create default admin user with ADMIN role
	if opts.AdminEmail == "" {
		return nil
	}
	_, err = userRepo.FindByEmail(ctx, opts.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	adminRole, err := roleRepo.FindByCode(ctx, model.RoleAdmin)
	if err != nil {
		return err
	}
	admin := &model.User{
		Email:      opts.AdminEmail,
		FullName:   "Administrator",
		RoleID:     &adminRole.ID,
		IsActive:   true,
		Privileges: adminRole.Privileges,
	}
	admin.Stamp("system")
	if err := admin.SetPassword(opts.AdminPassword); err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	log.Info("admin user created", zap.String("email", opts.AdminEmail))
	return nil
}
