package middleware

import (
	"context"
	"errors"

	"go-pos-ws/internal/model"
	"go-pos-ws/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const LocalStack = "stack"

// StackResolver maps a tenant id to its services. *tenant.Registry
// implements it.
type StackResolver interface {
	Resolve(ctx context.Context, tenantID string) (*service.Stack, error)
}

// MembershipFinder reports which tenants a user belongs to.
type MembershipFinder interface {
	FindMembership(ctx context.Context, tenantID, userID uuid.UUID) (*model.TenantUser, error)
	FindMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]model.TenantUser, error)
}

// AuthorizeTenant checks that userID may work in tenantID and returns the
// tenant's stack. An empty tenantID is the default store, open only to users
// that belong to no tenant.
func AuthorizeTenant(ctx context.Context, resolver StackResolver, members MembershipFinder, userID uuid.UUID, tenantID string) (*service.Stack, error) {
	if tenantID == "" {
		memberships, err := members.FindMembershipsByUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		bound := false
		for _, m := range memberships {
			if m.Tenant == nil {
				continue
			}
			if m.Tenant.IsActive {
				return nil, service.ErrTenantRequired
			}
			bound = true
		}
		if bound {
			return nil, service.ErrTenantInactive
		}
		return resolver.Resolve(ctx, "")
	}

	id, err := uuid.Parse(tenantID)
	if err != nil {
		return nil, service.ErrTenantNotFound
	}
	if _, err := members.FindMembership(ctx, id, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, service.ErrNotTenantMember
		}
		return nil, err
	}
	return resolver.Resolve(ctx, tenantID)
}

// TenantDenied writes the response for an AuthorizeTenant error. Unknown
// errors are returned to the app's ErrorHandler.
func TenantDenied(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrNotTenantMember):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "User is not a member of this tenant"})
	case errors.Is(err, service.ErrTenantInactive):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Tenant is inactive"})
	case errors.Is(err, service.ErrTenantNotFound):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Tenant not found"})
	case errors.Is(err, service.ErrTenantRequired):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Select a tenant first"})
	case errors.Is(err, service.ErrTenantUnavailable):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "Tenant database unavailable"})
	}
	return err
}

// ResolveTenant loads the service stack of the token's tenant. It runs after
// RequireAuth, and re-checks membership on every request.
func ResolveTenant(resolver StackResolver, members MembershipFinder) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID, _ := c.Locals(LocalTenantID).(string)

		stack, err := AuthorizeTenant(c.UserContext(), resolver, members, UserID(c), tenantID)
		if err != nil {
			return TenantDenied(c, err)
		}

		c.Locals(LocalStack, stack)
		return c.Next()
	}
}

// Stack returns the stack set by ResolveTenant.
func Stack(c *fiber.Ctx) *service.Stack {
	stack, _ := c.Locals(LocalStack).(*service.Stack)
	return stack
}
